package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/metcalfc/shu/internal/book"
	"github.com/taylorskalyo/goreader/epub"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// TitleRules accepts the navigation labels of the EPUB's NCX as chapter
// headings. A book without an NCX contributes no rules.
func (f *EPUBFormat) TitleRules(filename string) ([]book.TitleRule, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, errNoRootfiles
	}

	labels := navLabels(readNCX(filename, rc.Rootfiles[0]))
	if len(labels) == 0 {
		return nil, nil
	}
	return []book.TitleRule{book.AcceptExact(labels...)}, nil
}

// navLabels flattens the navigation labels of an NCX in document order.
func navLabels(toc *ncx) []string {
	if toc == nil {
		return nil
	}
	var out []string
	var walk func([]navPoint)
	walk = func(points []navPoint) {
		for _, np := range points {
			if t := strings.TrimSpace(np.Label.Text); t != "" {
				out = append(out, t)
			}
			walk(np.Children)
		}
	}
	walk(toc.NavMap.NavPoints)
	return out
}

func readNCX(filename string, book *epub.Rootfile) *ncx {
	data, err := findAndReadNCX(filename, book)
	if err != nil {
		return nil
	}
	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil
	}
	return &toc
}

// navTitles maps spine hrefs, with and without fragment and directory, to
// the first navigation label that points at them.
func navTitles(filename string, book *epub.Rootfile) map[string]string {
	result := make(map[string]string)
	toc := readNCX(filename, book)
	if toc == nil {
		return result
	}

	add := func(href, title string) {
		if _, exists := result[href]; !exists {
			result[href] = title
		}
	}
	var extract func(points []navPoint)
	extract = func(points []navPoint) {
		for _, np := range points {
			href := np.Content.Src
			title := strings.TrimSpace(np.Label.Text)
			if title != "" {
				base, _, _ := strings.Cut(href, "#")
				add(href, title)
				add(base, title)
				add(path.Base(base), title)
			}
			extract(np.Children)
		}
	}
	extract(toc.NavMap.NavPoints)

	return result
}

func findAndReadNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}

	if ncxPath == "" {
		return nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}

	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}
