package book

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Verdict is the outcome of a single TitleRule.
type Verdict int

const (
	// Continue defers the decision to the next rule.
	Continue Verdict = iota
	Accept
	Reject
)

// TitleRule inspects a trimmed, non-empty line.
type TitleRule interface {
	Check(line string) Verdict
}

// TitleRuleFunc adapts a function to TitleRule.
type TitleRuleFunc func(line string) Verdict

func (f TitleRuleFunc) Check(line string) Verdict { return f(line) }

// DefaultMaxTitleLength is the longest line still considered a heading.
const DefaultMaxTitleLength = 30

var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第[0-9零一二三四五六七八九十百千万]+章`),
	regexp.MustCompile(`(?i)^Chapter\s*[0-9]+`),
	regexp.MustCompile(`^[0-9]+\.`),
	regexp.MustCompile(`^第[0-9]+[节回卷部]`),
	regexp.MustCompile(`^第[0-9零一二三四五六七八九十百千万]+篇`),
	regexp.MustCompile(`^第\d+[章回节篇部卷](?:\s|$)`),
}

var specialSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^内容简介`),
	regexp.MustCompile(`^作者简介`),
	regexp.MustCompile(`^序`),
	regexp.MustCompile(`^目录`),
	regexp.MustCompile(`^前言`),
	regexp.MustCompile(`^后记`),
	regexp.MustCompile(`^简介`),
}

// RejectQuoted rejects dialogue lines.
var RejectQuoted = TitleRuleFunc(func(line string) Verdict {
	if strings.ContainsAny(line, "\"“”「」") {
		return Reject
	}
	return Continue
})

// AcceptSpecialSections accepts synopsis, preface, afterword, contents and
// author bio markers regardless of length.
var AcceptSpecialSections = TitleRuleFunc(func(line string) Verdict {
	if matchAny(specialSectionPatterns, line) {
		return Accept
	}
	return Continue
})

// AcceptChapterPatterns accepts the common Chinese and English heading forms.
var AcceptChapterPatterns = TitleRuleFunc(func(line string) Verdict {
	if matchAny(chapterPatterns, line) {
		return Accept
	}
	return Continue
})

// RejectLongerThan rejects lines with more than n runes.
func RejectLongerThan(n int) TitleRule {
	return TitleRuleFunc(func(line string) Verdict {
		if utf8.RuneCountInString(line) > n {
			return Reject
		}
		return Continue
	})
}

var markdownHeading = regexp.MustCompile(`^#{1,2}\s+\S`)

// AcceptMarkdownHeadings accepts level one and two Markdown headings.
var AcceptMarkdownHeadings = TitleRuleFunc(func(line string) Verdict {
	if markdownHeading.MatchString(line) {
		return Accept
	}
	return Continue
})

// AcceptExact accepts lines equal to one of titles.
func AcceptExact(titles ...string) TitleRule {
	set := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return TitleRuleFunc(func(line string) Verdict {
		if _, ok := set[line]; ok {
			return Accept
		}
		return Continue
	})
}

// DefaultTitleRules returns the standard chain. Extra rules run right after
// quote exclusion, ahead of the built-in heading patterns.
func DefaultTitleRules(maxTitleLength int, extra ...TitleRule) []TitleRule {
	if maxTitleLength <= 0 {
		maxTitleLength = DefaultMaxTitleLength
	}
	rules := []TitleRule{RejectQuoted}
	rules = append(rules, extra...)
	return append(rules,
		AcceptSpecialSections,
		RejectLongerThan(maxTitleLength),
		AcceptChapterPatterns,
	)
}

// TitleDetector runs an ordered list of rules. The first Accept or Reject
// wins; a line no rule decides is not a title.
type TitleDetector struct {
	rules []TitleRule
}

// NewTitleDetector creates a detector. With no rules it uses DefaultTitleRules.
func NewTitleDetector(rules ...TitleRule) *TitleDetector {
	if len(rules) == 0 {
		rules = DefaultTitleRules(DefaultMaxTitleLength)
	}
	return &TitleDetector{rules: rules}
}

// IsTitle reports whether line is a chapter heading.
func (d *TitleDetector) IsTitle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range d.rules {
		switch r.Check(line) {
		case Accept:
			return true
		case Reject:
			return false
		}
	}
	return false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
