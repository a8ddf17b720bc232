package book

import (
	"strings"
	"testing"
)

func paragraphs(n, size int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strings.Repeat("文", size)
	}
	return strings.Join(parts, "\n\n")
}

func TestPaginateSmallChapter(t *testing.T) {
	p := NewPaginator(DefaultPaginationConfig(), nil)
	pages := p.Paginate([]Chapter{{ID: 1, Title: "第一章", Content: "短。", WordCount: 2}})

	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	pg := pages[0]
	if pg.ID != 1 || pg.ChapterID != 1 || pg.Type != PageChapter || pg.Content != "短。" || pg.Title != "第一章" {
		t.Errorf("unexpected page %+v", pg)
	}
}

func TestPaginateLargeChapter(t *testing.T) {
	ch := Chapter{ID: 1, Title: "第一章", Content: paragraphs(7, 1000), WordCount: 7000}

	p := NewPaginator(PaginationConfig{MaxWordsPerPage: 3000}, nil)
	pages := p.Paginate([]Chapter{ch})

	if len(pages) < 3 {
		t.Fatalf("got %d pages, want at least 3", len(pages))
	}
	if pages[0].Type != PageChapter {
		t.Errorf("first page type = %q, want chapter", pages[0].Type)
	}
	for _, pg := range pages[1:] {
		if pg.Type != PageSubpage {
			t.Errorf("page %d type = %q, want subpage", pg.ID, pg.Type)
		}
	}

	total := 0
	for _, pg := range pages {
		if pg.WordCount > 3000 {
			t.Errorf("page %d has %d words, over budget", pg.ID, pg.WordCount)
		}
		total += pg.WordCount
	}
	if total != 7000 {
		t.Errorf("pages hold %d words, want 7000", total)
	}

	// Paragraph order is preserved.
	if got := strings.Join(pagesContent(pages), "\n\n"); got != ch.Content {
		t.Error("joined pages do not reproduce chapter content")
	}
}

func pagesContent(pages []Page) []string {
	out := make([]string, len(pages))
	for i, pg := range pages {
		out[i] = pg.Content
	}
	return out
}

func TestPaginatePageLimitOverflow(t *testing.T) {
	ch := Chapter{ID: 1, Title: "长章", Content: paragraphs(10, 100), WordCount: 1000}

	p := NewPaginator(PaginationConfig{MaxWordsPerPage: 100, MaxPagesPerChapter: 3}, nil)
	pages := p.Paginate([]Chapter{ch})

	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for _, pg := range pages[:2] {
		if pg.WordCount > 100 {
			t.Errorf("page %d over budget: %d", pg.ID, pg.WordCount)
		}
	}
	last := pages[2]
	if last.WordCount != 800 {
		t.Errorf("overflow page holds %d words, want 800", last.WordCount)
	}

	// No content is dropped.
	if got := strings.Join(pagesContent(pages), "\n\n"); got != ch.Content {
		t.Error("overflow lost content")
	}
}

func TestPaginateOversizedParagraph(t *testing.T) {
	para := strings.Repeat("一句话。", 400) // 1600 runes, one paragraph
	ch := Chapter{ID: 1, Title: "巨段", Content: para, WordCount: 1600}

	p := NewPaginator(PaginationConfig{MaxWordsPerPage: 500}, nil)
	pages := p.Paginate([]Chapter{ch})

	if len(pages) < 4 {
		t.Fatalf("got %d pages, want at least 4", len(pages))
	}
	var rebuilt strings.Builder
	for _, pg := range pages {
		if pg.WordCount > 500 {
			t.Errorf("page %d over budget: %d", pg.ID, pg.WordCount)
		}
		rebuilt.WriteString(pg.Content)
	}
	if rebuilt.String() != para {
		t.Error("split paragraph does not rebuild")
	}
}

func TestPaginateBudgetInvariant(t *testing.T) {
	chapters := []Chapter{
		{ID: 1, Title: "a", Content: paragraphs(3, 50), WordCount: 154},
		{ID: 2, Title: "b", Content: paragraphs(40, 70), WordCount: 2878},
		{ID: 3, Title: "c", Content: paragraphs(100, 33), WordCount: 3498},
		{ID: 4, Title: "d", Content: "x", WordCount: 1},
	}
	cfg := PaginationConfig{MaxWordsPerPage: 200, MaxPagesPerChapter: 10}
	p := NewPaginator(cfg, nil)
	pages := p.Paginate(chapters)

	prevID := 0
	for _, ch := range chapters {
		chPages := p.ChapterPages(ch.ID)
		if len(chPages) == 0 {
			t.Fatalf("chapter %d has no pages", ch.ID)
		}
		if len(chPages) > cfg.MaxPagesPerChapter {
			t.Errorf("chapter %d has %d pages", ch.ID, len(chPages))
		}
		capped := len(chPages) == cfg.MaxPagesPerChapter
		for i, pg := range chPages {
			if pg.ID != prevID+1 {
				t.Errorf("page id %d follows %d", pg.ID, prevID)
			}
			prevID = pg.ID
			if pg.ChapterID != ch.ID {
				t.Errorf("page %d chapter = %d, want %d", pg.ID, pg.ChapterID, ch.ID)
			}
			isOverflow := capped && i == len(chPages)-1
			if !isOverflow && pg.WordCount > cfg.MaxWordsPerPage {
				t.Errorf("page %d has %d words", pg.ID, pg.WordCount)
			}
		}
	}
	if prevID != len(pages) {
		t.Errorf("last id %d, total pages %d", prevID, len(pages))
	}
	// Chapter 3 needs 17 pages at this budget, so it must be capped.
	if n := p.ChapterPageCount(3); n != 10 {
		t.Errorf("chapter 3 has %d pages, want 10", n)
	}
}

func TestPaginateModes(t *testing.T) {
	ch := Chapter{ID: 1, Title: "t", Content: paragraphs(4, 10), WordCount: 46}

	t.Run("chapter", func(t *testing.T) {
		p := NewPaginator(PaginationConfig{Mode: SplitByChapter, MaxWordsPerPage: 5}, nil)
		if n := len(p.Paginate([]Chapter{ch})); n != 1 {
			t.Errorf("got %d pages, want 1", n)
		}
	})

	t.Run("paragraph", func(t *testing.T) {
		p := NewPaginator(PaginationConfig{Mode: SplitByParagraph}, nil)
		pages := p.Paginate([]Chapter{ch})
		if len(pages) != 4 {
			t.Fatalf("got %d pages, want 4", len(pages))
		}
		for _, pg := range pages {
			if pg.WordCount != 10 {
				t.Errorf("page %d words = %d, want 10", pg.ID, pg.WordCount)
			}
		}
	})

	t.Run("paragraph capped", func(t *testing.T) {
		p := NewPaginator(PaginationConfig{Mode: SplitByParagraph, MaxPagesPerChapter: 2}, nil)
		pages := p.Paginate([]Chapter{ch})
		if len(pages) != 2 {
			t.Fatalf("got %d pages, want 2", len(pages))
		}
		if pages[1].WordCount != 30 {
			t.Errorf("last page words = %d, want 30", pages[1].WordCount)
		}
	})

	t.Run("unknown mode uses word budget", func(t *testing.T) {
		p := NewPaginator(PaginationConfig{Mode: "bogus"}, nil)
		if p.Config().Mode != SplitByWords {
			t.Errorf("mode = %q", p.Config().Mode)
		}
	})
}

func newTestPaginator(t *testing.T) *Paginator {
	t.Helper()
	p := NewPaginator(PaginationConfig{MaxWordsPerPage: 10}, nil)
	p.Paginate([]Chapter{
		{ID: 1, Title: "第一章 Alpha", Content: paragraphs(2, 10), WordCount: 22},  // pages 1,2
		{ID: 2, Title: "第二章 Beta", Content: "needle 在这里", WordCount: 10},     // page 3
		{ID: 3, Title: "第三章 Gamma", Content: paragraphs(3, 10), WordCount: 34}, // pages 4,5,6
	})
	return p
}

func TestPaginatorLookups(t *testing.T) {
	p := newTestPaginator(t)

	if p.Count() != 6 {
		t.Fatalf("Count() = %d, want 6", p.Count())
	}
	if pg, ok := p.Page(3); !ok || pg.ChapterID != 2 {
		t.Errorf("Page(3) = %+v, %v", pg, ok)
	}
	if _, ok := p.Page(7); ok {
		t.Error("Page(7) should miss")
	}
	if got := p.ChapterPages(99); len(got) != 0 {
		t.Errorf("ChapterPages(99) = %v, want empty", got)
	}

	adj := p.AdjacentPages(1)
	if adj.Prev != nil || adj.Next == nil || adj.Next.ID != 2 {
		t.Errorf("AdjacentPages(1) = %+v", adj)
	}
	adj = p.AdjacentPages(3)
	if adj.Prev == nil || adj.Prev.ID != 2 || adj.Next == nil || adj.Next.ID != 4 {
		t.Errorf("AdjacentPages(3) = %+v", adj)
	}
	adj = p.AdjacentPages(6)
	if adj.Next != nil {
		t.Errorf("AdjacentPages(6).Next = %+v, want nil", adj.Next)
	}
	if adj := p.AdjacentPages(42); adj.Prev != nil || adj.Next != nil {
		t.Errorf("AdjacentPages(42) = %+v", adj)
	}

	adj = p.AdjacentChapterPages(3, 4)
	if adj.Prev != nil || adj.Next == nil || adj.Next.ID != 5 {
		t.Errorf("AdjacentChapterPages(3, 4) = %+v", adj)
	}
	adj = p.AdjacentChapterPages(1, 2)
	if adj.Next != nil {
		t.Error("chapter scoped neighbours must not cross chapters")
	}
	if adj := p.AdjacentChapterPages(1, 4); adj.Prev != nil || adj.Next != nil {
		t.Error("page outside chapter should have no neighbours")
	}
}

func TestPaginatorSearchIsCaseSensitive(t *testing.T) {
	p := newTestPaginator(t)

	if got := p.SearchPages("needle"); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("SearchPages(needle) = %v", got)
	}
	if got := p.SearchPages("NEEDLE"); len(got) != 0 {
		t.Errorf("SearchPages(NEEDLE) = %v, want none", got)
	}
	if got := p.SearchPages("Gamma"); len(got) != 3 {
		t.Errorf("title search found %d pages, want 3", len(got))
	}
}

func TestPaginatorStats(t *testing.T) {
	p := newTestPaginator(t)
	s := p.Stats()
	if s.TotalPages != 6 || s.ChapterCount != 3 || s.TotalWords != 60 || s.ShortestPage != 10 || s.LongestPage != 10 || s.AverageWordsPerPage != 10 {
		t.Errorf("Stats() = %+v", s)
	}

	if got := NewPaginator(DefaultPaginationConfig(), nil).Stats(); got != (PageStats{}) {
		t.Errorf("empty Stats() = %+v", got)
	}
}
