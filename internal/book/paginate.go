package book

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxWordsPerPage    = 3000
	DefaultMaxPagesPerChapter = 10

	paragraphSep = "\n\n"
)

// PaginationConfig bounds page size and page count per chapter.
type PaginationConfig struct {
	Mode               SplitMode `json:"mode" yaml:"mode"`
	MaxWordsPerPage    int       `json:"maxWordsPerPage" yaml:"max_words_per_page"`
	MaxPagesPerChapter int       `json:"maxPagesPerChapter" yaml:"max_pages_per_chapter"`
}

// DefaultPaginationConfig returns the word budget strategy with default limits.
func DefaultPaginationConfig() PaginationConfig {
	return PaginationConfig{
		Mode:               SplitByWords,
		MaxWordsPerPage:    DefaultMaxWordsPerPage,
		MaxPagesPerChapter: DefaultMaxPagesPerChapter,
	}
}

func (c PaginationConfig) normalized() PaginationConfig {
	d := DefaultPaginationConfig()
	if _, ok := ParseSplitMode(string(c.Mode)); ok {
		d.Mode = c.Mode
	}
	if c.MaxWordsPerPage > 0 {
		d.MaxWordsPerPage = c.MaxWordsPerPage
	}
	if c.MaxPagesPerChapter > 0 {
		d.MaxPagesPerChapter = c.MaxPagesPerChapter
	}
	return d
}

// PageStats summarizes the current pages.
type PageStats struct {
	TotalPages          int `json:"totalPages" yaml:"totalPages"`
	TotalWords          int `json:"totalWords" yaml:"totalWords"`
	AverageWordsPerPage int `json:"averageWordsPerPage" yaml:"averageWordsPerPage"`
	ShortestPage        int `json:"shortestPage" yaml:"shortestPage"`
	LongestPage         int `json:"longestPage" yaml:"longestPage"`
	ChapterCount        int `json:"chapterCount" yaml:"chapterCount"`
}

// Adjacent holds the neighbours of a page. Either side may be nil.
type Adjacent struct {
	Prev *Page
	Next *Page
}

// Paginator splits chapters into pages and answers page lookups.
type Paginator struct {
	cfg       PaginationConfig
	pages     []Page
	byID      map[int]int
	byChapter map[int][]Page
	logger    *slog.Logger
}

// NewPaginator creates a Paginator. Zero fields of cfg take defaults.
func NewPaginator(cfg PaginationConfig, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		cfg:       cfg.normalized(),
		byID:      make(map[int]int),
		byChapter: make(map[int][]Page),
		logger:    logger,
	}
}

// Config returns the effective configuration.
func (p *Paginator) Config() PaginationConfig { return p.cfg }

// SetConfig changes the configuration used by the next Paginate call.
func (p *Paginator) SetConfig(cfg PaginationConfig) { p.cfg = cfg.normalized() }

// Paginate replaces the current pages with pages built from chapters. Page
// ids start at 1 and increase across chapters in order.
func (p *Paginator) Paginate(chapters []Chapter) []Page {
	p.pages = nil
	p.byID = make(map[int]int)
	p.byChapter = make(map[int][]Page, len(chapters))

	nextID := 1
	for _, ch := range chapters {
		chPages := p.splitChapter(ch, nextID)
		p.byChapter[ch.ID] = chPages
		p.pages = append(p.pages, chPages...)
		nextID += len(chPages)
	}
	for i, pg := range p.pages {
		p.byID[pg.ID] = i
	}

	p.logger.Debug("paginated chapters",
		"chapters", len(chapters), "pages", len(p.pages), "mode", p.cfg.Mode)
	return p.Pages()
}

type unit struct {
	text  string
	count int
	sep   string
}

func (p *Paginator) splitChapter(ch Chapter, startID int) []Page {
	var units []unit
	byBudget := false

	switch p.cfg.Mode {
	case SplitByChapter:
	case SplitByParagraph:
		units = paragraphUnits(ch.Content, 0)
	default:
		if ch.WordCount > p.cfg.MaxWordsPerPage {
			units = paragraphUnits(ch.Content, p.cfg.MaxWordsPerPage)
			byBudget = true
		}
	}

	if len(units) == 0 {
		return []Page{{
			ID:        startID,
			Title:     ch.Title,
			Content:   ch.Content,
			ChapterID: ch.ID,
			WordCount: ch.WordCount,
			Type:      PageChapter,
		}}
	}

	var pages []Page
	var buf strings.Builder
	count := 0
	flush := func() {
		typ := PageSubpage
		if len(pages) == 0 {
			typ = PageChapter
		}
		pages = append(pages, Page{
			ID:        startID + len(pages),
			Title:     ch.Title,
			Content:   strings.TrimSpace(buf.String()),
			ChapterID: ch.ID,
			WordCount: count,
			Type:      typ,
		})
		buf.Reset()
		count = 0
	}

	for _, u := range units {
		full := !byBudget || count+u.count > p.cfg.MaxWordsPerPage
		// The last allowed page takes whatever remains.
		if buf.Len() > 0 && full && len(pages) < p.cfg.MaxPagesPerChapter-1 {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString(u.sep)
		}
		buf.WriteString(u.text)
		count += u.count
	}
	if buf.Len() > 0 {
		flush()
	}
	if len(pages) == p.cfg.MaxPagesPerChapter && byBudget && pages[len(pages)-1].WordCount > p.cfg.MaxWordsPerPage {
		p.logger.Debug("chapter hit page limit, overflow folded into last page",
			"chapter", ch.ID, "title", ch.Title, "max_pages", p.cfg.MaxPagesPerChapter)
	}
	return pages
}

// paragraphUnits splits content on blank lines. With budget > 0, paragraphs
// longer than budget are cut into sentence-aligned pieces.
func paragraphUnits(content string, budget int) []unit {
	var units []unit
	for _, para := range strings.Split(content, paragraphSep) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		if budget <= 0 || n <= budget {
			units = append(units, unit{text: para, count: n, sep: paragraphSep})
			continue
		}
		runes := []rune(para)
		for i, s := range sentenceSpans(runes, budget) {
			sep := ""
			if i == 0 {
				sep = paragraphSep
			}
			units = append(units, unit{text: string(runes[s.start:s.end]), count: s.end - s.start, sep: sep})
		}
	}
	return units
}

// Page returns the page with the given id.
func (p *Paginator) Page(id int) (Page, bool) {
	i, ok := p.byID[id]
	if !ok {
		return Page{}, false
	}
	return p.pages[i], true
}

// ChapterPages returns the pages of a chapter, or nil if it is unknown.
func (p *Paginator) ChapterPages(chapterID int) []Page {
	return append([]Page(nil), p.byChapter[chapterID]...)
}

// Pages returns a copy of all pages in reading order.
func (p *Paginator) Pages() []Page {
	return append([]Page(nil), p.pages...)
}

// Count returns the total number of pages.
func (p *Paginator) Count() int { return len(p.pages) }

// ChapterPageCount returns the number of pages in a chapter.
func (p *Paginator) ChapterPageCount(chapterID int) int {
	return len(p.byChapter[chapterID])
}

// AdjacentPages returns the neighbours of pageID in global reading order.
func (p *Paginator) AdjacentPages(pageID int) Adjacent {
	i, ok := p.byID[pageID]
	if !ok {
		return Adjacent{}
	}
	return adjacentAt(p.pages, i)
}

// AdjacentChapterPages returns the neighbours of pageID within one chapter.
func (p *Paginator) AdjacentChapterPages(chapterID, pageID int) Adjacent {
	pages := p.byChapter[chapterID]
	for i, pg := range pages {
		if pg.ID == pageID {
			return adjacentAt(pages, i)
		}
	}
	return Adjacent{}
}

func adjacentAt(pages []Page, i int) Adjacent {
	var a Adjacent
	if i > 0 {
		prev := pages[i-1]
		a.Prev = &prev
	}
	if i < len(pages)-1 {
		next := pages[i+1]
		a.Next = &next
	}
	return a
}

// SearchPages returns pages whose title or content contains keyword.
// Matching is case sensitive.
func (p *Paginator) SearchPages(keyword string) []Page {
	var out []Page
	for _, pg := range p.pages {
		if strings.Contains(pg.Title, keyword) || strings.Contains(pg.Content, keyword) {
			out = append(out, pg)
		}
	}
	return out
}

// Stats folds over the current pages.
func (p *Paginator) Stats() PageStats {
	s := PageStats{TotalPages: len(p.pages), ChapterCount: len(p.byChapter)}
	if len(p.pages) == 0 {
		return s
	}
	s.ShortestPage = p.pages[0].WordCount
	for _, pg := range p.pages {
		s.TotalWords += pg.WordCount
		s.ShortestPage = min(s.ShortestPage, pg.WordCount)
		s.LongestPage = max(s.LongestPage, pg.WordCount)
	}
	s.AverageWordsPerPage = roundDiv(s.TotalWords, s.TotalPages)
	return s
}
