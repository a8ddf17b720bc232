package book

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSegmentLength is the chunk size used when no headings are found.
	DefaultSegmentLength = 2000

	// DefaultPreambleTitle names text that precedes the first heading.
	DefaultPreambleTitle = "引子"

	// A sentence break is only used if it falls past this share of the budget.
	sentenceCutRatio = 0.7
)

// Parser turns raw text into chapters.
type Parser struct {
	detector      *TitleDetector
	segmentLength int
	preambleTitle string
	logger        *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTitleRules replaces the heading rule chain.
func WithTitleRules(rules ...TitleRule) ParserOption {
	return func(p *Parser) { p.detector = NewTitleDetector(rules...) }
}

// WithSegmentLength sets the fallback chunk size in runes.
func WithSegmentLength(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.segmentLength = n
		}
	}
}

// WithPreambleTitle sets the title given to text before the first heading.
func WithPreambleTitle(title string) ParserOption {
	return func(p *Parser) { p.preambleTitle = title }
}

// WithParserLogger sets the logger.
func WithParserLogger(l *slog.Logger) ParserOption {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser creates a Parser with the default heading rules.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		detector:      NewTitleDetector(),
		segmentLength: DefaultSegmentLength,
		preambleTitle: DefaultPreambleTitle,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits text into chapters numbered 1..N in document order. It never
// fails: text without headings is cut into fixed-length segments.
func (p *Parser) Parse(text string) []Chapter {
	runes := []rune(text)
	var chapters []Chapter
	var cur *Chapter
	offset := 0

	for _, line := range strings.Split(text, "\n") {
		if p.detector.IsTitle(line) {
			switch {
			case cur != nil:
				chapters = append(chapters, closeChapter(*cur, runes, offset-1))
			case offset > 0:
				// Text ahead of the first heading.
				pre := closeChapter(Chapter{ID: 1, Title: p.preambleTitle}, runes, offset-1)
				if pre.WordCount > 0 {
					chapters = append(chapters, pre)
				}
			}
			cur = &Chapter{
				ID:         len(chapters) + 1,
				Title:      strings.TrimSpace(line),
				StartIndex: offset,
			}
		}
		offset += utf8.RuneCountInString(line) + 1
	}
	if cur != nil {
		chapters = append(chapters, closeChapter(*cur, runes, len(runes)))
	}

	if len(chapters) == 0 {
		chapters = p.segment(runes)
		p.logger.Debug("no headings found, segmented by length",
			"segments", len(chapters), "segment_length", p.segmentLength)
		return chapters
	}

	p.logger.Debug("parsed chapters", "chapters", len(chapters), "runes", len(runes))
	return chapters
}

func closeChapter(c Chapter, runes []rune, end int) Chapter {
	if end < c.StartIndex {
		end = c.StartIndex
	}
	c.EndIndex = end
	c.Content = strings.TrimSpace(string(runes[c.StartIndex:end]))
	c.WordCount = utf8.RuneCountInString(c.Content)
	return c
}

func (p *Parser) segment(runes []rune) []Chapter {
	var chapters []Chapter
	for _, s := range sentenceSpans(runes, p.segmentLength) {
		content := strings.TrimSpace(string(runes[s.start:s.end]))
		if content == "" {
			continue
		}
		id := len(chapters) + 1
		chapters = append(chapters, Chapter{
			ID:         id,
			Title:      fmt.Sprintf("第%d段", id),
			StartIndex: s.start,
			EndIndex:   s.end,
			Content:    content,
			WordCount:  utf8.RuneCountInString(content),
		})
	}
	return chapters
}

type span struct {
	start, end int
}

// sentenceSpans cuts runes into consecutive spans of at most budget runes,
// ending each span on a sentence terminator when one lies past 70% of the
// budget.
func sentenceSpans(runes []rune, budget int) []span {
	if budget <= 0 {
		budget = DefaultSegmentLength
	}
	var spans []span
	for cur := 0; cur < len(runes); {
		end := min(cur+budget, len(runes))
		if end < len(runes) {
			if cut := lastTerminator(runes[cur:end]); cut > 0 && float64(cut) > float64(budget)*sentenceCutRatio {
				end = cur + cut + 1
			}
		}
		spans = append(spans, span{start: cur, end: end})
		cur = end
	}
	return spans
}

func lastTerminator(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '。', '！', '？', '.', '!', '?':
			return i
		}
	}
	return -1
}
