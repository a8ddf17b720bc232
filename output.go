package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/navigator"
	"github.com/metcalfc/shu/internal/state"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case outputText, outputJSON, outputYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// encode writes data as JSON or YAML.
func encode(w io.Writer, format outputFormat, data any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

type chapterSummary struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	WordCount int    `json:"wordCount" yaml:"wordCount"`
	Pages     int    `json:"pages" yaml:"pages"`
}

type chapterReport struct {
	Chapters     []chapterSummary   `json:"chapters" yaml:"chapters"`
	ChapterStats *book.ChapterStats `json:"chapterStats,omitempty" yaml:"chapterStats,omitempty"`
	PageStats    *book.PageStats    `json:"pageStats,omitempty" yaml:"pageStats,omitempty"`
}

func summarize(nav *navigator.Navigator, chapters []book.Chapter) []chapterSummary {
	out := make([]chapterSummary, len(chapters))
	for i, ch := range chapters {
		out[i] = chapterSummary{
			ID:        ch.ID,
			Title:     ch.Title,
			WordCount: ch.WordCount,
			Pages:     nav.Pages().ChapterPageCount(ch.ID),
		}
	}
	return out
}

func writeChapters(w io.Writer, format outputFormat, nav *navigator.Navigator, withStats bool) error {
	report := chapterReport{Chapters: summarize(nav, nav.Chapters().All())}
	if withStats {
		cs := nav.Chapters().Stats()
		ps := nav.Pages().Stats()
		report.ChapterStats, report.PageStats = &cs, &ps
	}
	if format != outputText {
		return encode(w, format, report)
	}

	for _, ch := range report.Chapters {
		fmt.Fprintf(w, "%d. %s (%d 字)\n", ch.ID, ch.Title, ch.WordCount)
	}
	if withStats {
		cs, ps := report.ChapterStats, report.PageStats
		fmt.Fprintf(w, "\n%d chapters, %d 字, average %d, shortest %d, longest %d\n",
			cs.TotalChapters, cs.TotalWords, cs.AverageWordsPerChapter, cs.ShortestChapter, cs.LongestChapter)
		fmt.Fprintf(w, "%d pages, %d 字, average %d per page\n",
			ps.TotalPages, ps.TotalWords, ps.AverageWordsPerPage)
	}
	return nil
}

func writeChapterList(w io.Writer, format outputFormat, nav *navigator.Navigator, chapters []book.Chapter) error {
	summaries := summarize(nav, chapters)
	if format != outputText {
		return encode(w, format, summaries)
	}
	for _, ch := range summaries {
		fmt.Fprintf(w, "%d. %s (%d 字)\n", ch.ID, ch.Title, ch.WordCount)
	}
	return nil
}

type pageSummary struct {
	ID        int           `json:"id" yaml:"id"`
	ChapterID int           `json:"chapterId" yaml:"chapterId"`
	Title     string        `json:"title" yaml:"title"`
	Type      book.PageType `json:"type" yaml:"type"`
	WordCount int           `json:"wordCount" yaml:"wordCount"`
}

func writePages(w io.Writer, format outputFormat, pages []book.Page) error {
	out := make([]pageSummary, len(pages))
	for i, pg := range pages {
		out[i] = pageSummary{ID: pg.ID, ChapterID: pg.ChapterID, Title: pg.Title, Type: pg.Type, WordCount: pg.WordCount}
	}
	if format != outputText {
		return encode(w, format, out)
	}
	for _, pg := range out {
		fmt.Fprintf(w, "%4d  ch %-4d %-8s %6d 字  %s\n", pg.ID, pg.ChapterID, pg.Type, pg.WordCount, pg.Title)
	}
	return nil
}

func writePage(w io.Writer, format outputFormat, pg book.Page) error {
	if format != outputText {
		return encode(w, format, pg)
	}
	fmt.Fprintf(w, "%s  [page %d]\n\n%s\n", pg.Title, pg.ID, pg.Content)
	return nil
}

type bookProgress struct {
	File          string `json:"file" yaml:"file"`
	Path          string `json:"path" yaml:"path"`
	Chapter       int    `json:"currentChapterId" yaml:"currentChapterId"`
	Page          int    `json:"currentPageId" yaml:"currentPageId"`
	TotalChapters int    `json:"totalChapters" yaml:"totalChapters"`
	ReadPages     int    `json:"readPages" yaml:"readPages"`
	TotalPages    int    `json:"totalPages" yaml:"totalPages"`
	Percent       int    `json:"progressPercent" yaml:"progressPercent"`
	LastReadTime  string `json:"lastReadTime" yaml:"lastReadTime"`
}

func toBookProgress(p state.Progress, st state.ReadingStats) bookProgress {
	name := p.FileName
	if name == "" {
		name = filepath.Base(p.FilePath)
	}
	return bookProgress{
		File:          name,
		Path:          p.FilePath,
		Chapter:       p.CurrentChapterID,
		Page:          p.CurrentPageID,
		TotalChapters: p.TotalChapters,
		ReadPages:     st.ReadPages,
		TotalPages:    st.TotalPages,
		Percent:       st.ProgressPercent,
		LastReadTime:  p.LastReadTime.Local().Format(time.DateTime),
	}
}

func writeBookProgress(w io.Writer, format outputFormat, p state.Progress, st state.ReadingStats) error {
	bp := toBookProgress(p, st)
	if format != outputText {
		return encode(w, format, bp)
	}
	printBookProgress(w, bp)
	return nil
}

func printBookProgress(w io.Writer, bp bookProgress) {
	fmt.Fprintf(w, "%s  %d%% (%d/%d pages)  chapter %d/%d, page %d  last read %s\n",
		bp.File, bp.Percent, bp.ReadPages, bp.TotalPages, bp.Chapter, bp.TotalChapters, bp.Page, bp.LastReadTime)
}

// writeProgress reports every book in the store, most recently read first.
func writeProgress(w io.Writer, format outputFormat, store *state.Store) error {
	list := store.List()
	out := make([]bookProgress, len(list))
	for i, p := range list {
		out[i] = toBookProgress(p, store.Stats(p.FilePath))
	}
	if format != outputText {
		return encode(w, format, out)
	}
	if len(out) == 0 {
		fmt.Fprintln(w, "no reading progress yet")
		return nil
	}
	for _, bp := range out {
		printBookProgress(w, bp)
	}
	return nil
}
