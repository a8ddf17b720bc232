package reader

import (
	"os"

	"github.com/metcalfc/shu/internal/book"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (f *MarkdownFormat) Extract(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

// TitleRules treats level one and two headers as chapter headings.
func (f *MarkdownFormat) TitleRules(string) ([]book.TitleRule, error) {
	return []book.TitleRule{book.AcceptMarkdownHeadings}, nil
}
