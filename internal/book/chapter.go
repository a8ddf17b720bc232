// Package book splits novel text into chapters and pages.
package book

// Chapter is one detected section of a document. StartIndex and EndIndex are
// rune offsets into the parsed text, [StartIndex, EndIndex).
type Chapter struct {
	ID         int    `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	StartIndex int    `json:"startIndex" yaml:"startIndex"`
	EndIndex   int    `json:"endIndex" yaml:"endIndex"`
	Content    string `json:"content" yaml:"content"`
	WordCount  int    `json:"wordCount" yaml:"wordCount"`
}

// PageType marks whether a page opens its chapter or continues it.
type PageType string

const (
	PageChapter PageType = "chapter"
	PageSubpage PageType = "subpage"
)

// Page is a bounded slice of a chapter. IDs are unique across the document
// and increase in reading order.
type Page struct {
	ID        int      `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Content   string   `json:"content" yaml:"content"`
	ChapterID int      `json:"chapterId" yaml:"chapterId"`
	WordCount int      `json:"wordCount" yaml:"wordCount"`
	Type      PageType `json:"type" yaml:"type"`
}

// SplitMode selects how chapters are cut into pages.
type SplitMode string

const (
	SplitByChapter   SplitMode = "chapter"
	SplitByWords     SplitMode = "words"
	SplitByParagraph SplitMode = "paragraph"
)

// ParseSplitMode returns the mode named by s.
func ParseSplitMode(s string) (SplitMode, bool) {
	switch m := SplitMode(s); m {
	case SplitByChapter, SplitByWords, SplitByParagraph:
		return m, true
	}
	return "", false
}
