package reader

import (
	"path/filepath"
	"strings"

	"github.com/metcalfc/shu/internal/book"
)

// Format defines a file format reader for extracting text.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (string, error)
}

// TitleHinter is an optional interface for formats that know their own
// heading forms. The returned rules run ahead of the default ones.
type TitleHinter interface {
	TitleRules(filename string) ([]book.TitleRule, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup returns the format registered for filename's extension, or the
// plain text format.
func Lookup(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return plainText
}

// ExtractText extracts text from a file, using a registered format or plain text fallback.
func ExtractText(filename string) (string, error) {
	return Lookup(filename).Extract(filename)
}

// TitleRules returns the extra heading rules the file's format provides.
func TitleRules(filename string) ([]book.TitleRule, error) {
	h, ok := Lookup(filename).(TitleHinter)
	if !ok {
		return nil, nil
	}
	return h.TitleRules(filename)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
