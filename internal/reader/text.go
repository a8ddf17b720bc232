package reader

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextFormat implements Format for plain text novels.
type TextFormat struct{}

var plainText = &TextFormat{}

func init() {
	Register(plainText)
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt"} }

func (f *TextFormat) Extract(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

// decodeText strips a byte order mark, decoding UTF-16 when one says so.
// Input that is not valid UTF-8 is read as GB18030, the usual encoding of
// Chinese novel downloads.
func decodeText(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	if utf8.Valid(out) {
		return string(out), nil
	}
	out, _, err = transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), out)
	if err != nil {
		return "", fmt.Errorf("failed to decode GB18030 text: %w", err)
	}
	return string(out), nil
}
