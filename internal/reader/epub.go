package reader

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNoRootfiles = errors.New("no rootfiles found in epub")

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) Extract(filename string) (string, error) {
	return ExtractTextFromEPUB(filename)
}

// ExtractTextFromEPUB extracts the text of every spine item in reading
// order. Paragraphs are separated by blank lines, and sections named in the
// NCX start with their navigation label on a line of its own.
func ExtractTextFromEPUB(filename string) (string, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", errNoRootfiles
	}

	book := rc.Rootfiles[0]
	titles := navTitles(filename, book)
	var sections []string

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		text := extractTextFromHTML(string(data))
		if title := titleForHref(titles, ref.Item.HREF); title != "" && firstLine(text) != title {
			text = title + "\n\n" + text
		}
		if strings.TrimSpace(text) != "" {
			sections = append(sections, text)
		}
	}

	return strings.Join(sections, "\n\n"), nil
}

func titleForHref(titles map[string]string, href string) string {
	if href == "" {
		return ""
	}
	if t, ok := titles[href]; ok {
		return t
	}
	return titles[path.Base(href)]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true, atom.Tr: true,
}

// extractTextFromHTML returns the visible text of an XHTML document with one
// paragraph per block element.
func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var paras []string
	var cur strings.Builder
	breakPara := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			paras = append(paras, t)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if cur.Len() > 0 && needsSpace(cur.String(), t) {
					cur.WriteString(" ")
				}
				cur.WriteString(t)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style:
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			breakPara()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			breakPara()
		}
	}
	walk(doc)
	breakPara()
	return strings.Join(paras, "\n\n")
}

// needsSpace reports whether two inline runs need a space between them.
// CJK text is written without word spacing.
func needsSpace(prev, next string) bool {
	last := []rune(prev)
	first := []rune(next)
	return !isCJK(last[len(last)-1]) && !isCJK(first[0])
}

func isCJK(r rune) bool {
	return (r >= 0x3000 && r <= 0x9fff) || (r >= 0xff00 && r <= 0xffef)
}
