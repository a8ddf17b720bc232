// Package navigator answers reading queries over a paginated document and
// records the reader's position as a side effect.
package navigator

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/state"
)

var (
	ErrChapterNotFound = errors.New("chapter not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrNoPages         = errors.New("document has no pages")

	// ErrEndOfDocument and ErrStartOfDocument report a normal boundary, not
	// a failure.
	ErrEndOfDocument   = errors.New("already at the last page")
	ErrStartOfDocument = errors.New("already at the first page")
)

// IsBoundary reports whether err is a start or end of document signal.
func IsBoundary(err error) bool {
	return errors.Is(err, ErrEndOfDocument) || errors.Is(err, ErrStartOfDocument)
}

// ProgressStore is the subset of state.Store the Navigator needs.
type ProgressStore interface {
	Get(path string) (state.Progress, bool)
	Initialize(path, fileName string, totalChapters, totalPages int) (state.Progress, error)
	Update(path string, chapterID, pageID int) error
}

// Position is the current reading location of a document. Any field may be
// nil when no progress exists or the stored ids no longer resolve.
type Position struct {
	Chapter  *book.Chapter
	Page     *book.Page
	Progress *state.Progress
}

// ChapterProgress is the share of a chapter's pages that have been read.
type ChapterProgress struct {
	ReadPages  int `json:"readPages"`
	TotalPages int `json:"totalPages"`
	Percent    int `json:"percent"`
}

// Navigator answers jump, next, prev, search and resume queries.
type Navigator struct {
	chapters *book.ChapterIndex
	pages    *book.Paginator
	progress ProgressStore
	logger   *slog.Logger
}

// New creates a Navigator over one parsed and paginated document.
func New(chapters *book.ChapterIndex, pages *book.Paginator, progress ProgressStore, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		chapters: chapters,
		pages:    pages,
		progress: progress,
		logger:   logger,
	}
}

// Chapters returns the chapter index.
func (n *Navigator) Chapters() *book.ChapterIndex { return n.chapters }

// Pages returns the paginator.
func (n *Navigator) Pages() *book.Paginator { return n.pages }

// record moves the stored position. Persistence errors are logged and
// absorbed.
func (n *Navigator) record(doc string, pg book.Page) {
	if err := n.progress.Update(doc, pg.ChapterID, pg.ID); err != nil {
		n.logger.Warn("failed to save reading progress",
			"doc", doc, "chapter", pg.ChapterID, "page", pg.ID, "error", err)
	}
}

// JumpToChapter moves to the first page of chapterID.
func (n *Navigator) JumpToChapter(doc string, chapterID int) (book.Page, error) {
	ch, ok := n.chapters.Get(chapterID)
	if !ok {
		n.logger.Debug("chapter not found", "doc", doc, "chapter", chapterID)
		return book.Page{}, ErrChapterNotFound
	}
	pages := n.pages.ChapterPages(chapterID)
	if len(pages) == 0 {
		n.logger.Debug("chapter has no pages", "doc", doc, "chapter", chapterID)
		return book.Page{}, ErrPageNotFound
	}
	first := pages[0]
	n.record(doc, first)
	n.logger.Debug("jumped to chapter", "doc", doc, "chapter", ch.Title, "page", first.ID)
	return first, nil
}

// JumpToPage moves to pageID.
func (n *Navigator) JumpToPage(doc string, pageID int) (book.Page, error) {
	pg, ok := n.pages.Page(pageID)
	if !ok {
		n.logger.Debug("page not found", "doc", doc, "page", pageID)
		return book.Page{}, ErrPageNotFound
	}
	n.record(doc, pg)
	return pg, nil
}

// NextPage moves to the page after currentPageID in reading order.
func (n *Navigator) NextPage(doc string, currentPageID int) (book.Page, error) {
	if _, ok := n.pages.Page(currentPageID); !ok {
		return book.Page{}, ErrPageNotFound
	}
	adj := n.pages.AdjacentPages(currentPageID)
	if adj.Next == nil {
		n.logger.Debug("end of document", "doc", doc, "page", currentPageID)
		return book.Page{}, ErrEndOfDocument
	}
	n.record(doc, *adj.Next)
	return *adj.Next, nil
}

// PrevPage moves to the page before currentPageID in reading order.
func (n *Navigator) PrevPage(doc string, currentPageID int) (book.Page, error) {
	if _, ok := n.pages.Page(currentPageID); !ok {
		return book.Page{}, ErrPageNotFound
	}
	adj := n.pages.AdjacentPages(currentPageID)
	if adj.Prev == nil {
		n.logger.Debug("start of document", "doc", doc, "page", currentPageID)
		return book.Page{}, ErrStartOfDocument
	}
	n.record(doc, *adj.Prev)
	return *adj.Prev, nil
}

// NextChapter moves to the first page of the chapter after chapterID.
func (n *Navigator) NextChapter(doc string, chapterID int) (book.Page, error) {
	return n.stepChapter(doc, chapterID, 1, ErrEndOfDocument)
}

// PrevChapter moves to the first page of the chapter before chapterID.
func (n *Navigator) PrevChapter(doc string, chapterID int) (book.Page, error) {
	return n.stepChapter(doc, chapterID, -1, ErrStartOfDocument)
}

func (n *Navigator) stepChapter(doc string, chapterID, delta int, boundary error) (book.Page, error) {
	pos, ok := n.chapters.Position(chapterID)
	if !ok {
		return book.Page{}, ErrChapterNotFound
	}
	target, ok := n.chapters.ByPosition(pos + delta)
	if !ok {
		return book.Page{}, boundary
	}
	return n.JumpToChapter(doc, target.ID)
}

// ContinueReading returns the page at the stored position without changing
// it. Without usable progress it starts at the first page and records that.
func (n *Navigator) ContinueReading(doc string) (book.Page, error) {
	if pos := n.CurrentPosition(doc); pos.Page != nil {
		return *pos.Page, nil
	}

	all := n.pages.Pages()
	if len(all) == 0 {
		return book.Page{}, ErrNoPages
	}
	first := all[0]
	if _, ok := n.progress.Get(doc); !ok {
		if _, err := n.progress.Initialize(doc, filepath.Base(doc), n.chapters.Count(), n.pages.Count()); err != nil {
			n.logger.Warn("failed to save reading progress", "doc", doc, "error", err)
		}
	}
	n.record(doc, first)
	n.logger.Debug("started reading", "doc", doc, "page", first.ID)
	return first, nil
}

// ChapterOf returns the chapter that contains pageID.
func (n *Navigator) ChapterOf(pageID int) (book.Chapter, error) {
	pg, ok := n.pages.Page(pageID)
	if !ok {
		return book.Chapter{}, ErrPageNotFound
	}
	ch, ok := n.chapters.Get(pg.ChapterID)
	if !ok {
		return book.Chapter{}, ErrChapterNotFound
	}
	return ch, nil
}

// CurrentPosition resolves the stored position against the current chapters
// and pages.
func (n *Navigator) CurrentPosition(doc string) Position {
	p, ok := n.progress.Get(doc)
	if !ok {
		return Position{}
	}
	pos := Position{Progress: &p}
	if ch, ok := n.chapters.Get(p.CurrentChapterID); ok {
		pos.Chapter = &ch
	}
	if pg, ok := n.pages.Page(p.CurrentPageID); ok {
		pos.Page = &pg
	}
	return pos
}

// SearchChapters returns chapters whose title contains keyword, ignoring
// case.
func (n *Navigator) SearchChapters(doc string, keyword string) []book.Chapter {
	kw := strings.ToLower(keyword)
	var out []book.Chapter
	for _, ch := range n.chapters.All() {
		if strings.Contains(strings.ToLower(ch.Title), kw) {
			out = append(out, ch)
		}
	}
	return out
}

// SearchPages returns pages whose title or content contains keyword. Unlike
// SearchChapters the match is case sensitive.
func (n *Navigator) SearchPages(doc string, keyword string) []book.Page {
	return n.pages.SearchPages(keyword)
}

// ChapterProgress reports how many of chapterID's pages have been read.
func (n *Navigator) ChapterProgress(doc string, chapterID int) ChapterProgress {
	pages := n.pages.ChapterPages(chapterID)
	cp := ChapterProgress{TotalPages: len(pages)}
	p, ok := n.progress.Get(doc)
	if !ok || len(pages) == 0 {
		return cp
	}
	for _, pg := range pages {
		if p.HasRead(pg.ID) {
			cp.ReadPages++
		}
	}
	cp.Percent = book.Percent(cp.ReadPages, cp.TotalPages)
	return cp
}
