package config

import (
	"fmt"
	"log/slog"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/state"
)

// Config is the full reader configuration.
type Config struct {
	Pagination PaginationConfig `mapstructure:"pagination" yaml:"pagination"`
	Parser     ParserConfig     `mapstructure:"parser" yaml:"parser"`
	Progress   ProgressConfig   `mapstructure:"progress" yaml:"progress"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// PaginationConfig controls how chapters are split into pages.
type PaginationConfig struct {
	Mode               string `mapstructure:"mode" yaml:"mode"`
	MaxWordsPerPage    int    `mapstructure:"max_words_per_page" yaml:"max_words_per_page"`
	MaxPagesPerChapter int    `mapstructure:"max_pages_per_chapter" yaml:"max_pages_per_chapter"`
}

// ParserConfig controls chapter detection.
type ParserConfig struct {
	SegmentLength  int    `mapstructure:"segment_length" yaml:"segment_length"`
	MaxTitleLength int    `mapstructure:"max_title_length" yaml:"max_title_length"`
	PreambleTitle  string `mapstructure:"preamble_title" yaml:"preamble_title"`
}

// ProgressConfig locates the reading progress snapshot. An empty Dir means
// the XDG state directory.
type ProgressConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	File string `mapstructure:"file" yaml:"file"`
}

// LogConfig controls logging. File applies to the interactive readers; an
// empty File logs next to the progress snapshot.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Pagination: PaginationConfig{
			Mode:               string(book.SplitByWords),
			MaxWordsPerPage:    book.DefaultMaxWordsPerPage,
			MaxPagesPerChapter: book.DefaultMaxPagesPerChapter,
		},
		Parser: ParserConfig{
			SegmentLength:  book.DefaultSegmentLength,
			MaxTitleLength: book.DefaultMaxTitleLength,
			PreambleTitle:  book.DefaultPreambleTitle,
		},
		Progress: ProgressConfig{
			File: state.DefaultFileName,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings that cannot fall back to a default.
func (c *Config) Validate() error {
	if _, ok := book.ParseSplitMode(c.Pagination.Mode); !ok {
		return fmt.Errorf("%w: pagination.mode %q must be words, chapter or paragraph", ErrInvalidConfig, c.Pagination.Mode)
	}
	positive := []struct {
		key string
		val int
	}{
		{"pagination.max_words_per_page", c.Pagination.MaxWordsPerPage},
		{"pagination.max_pages_per_chapter", c.Pagination.MaxPagesPerChapter},
		{"parser.segment_length", c.Parser.SegmentLength},
		{"parser.max_title_length", c.Parser.MaxTitleLength},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.key, p.val)
		}
	}
	if c.Progress.File == "" {
		return fmt.Errorf("%w: progress.file must be set", ErrInvalidConfig)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}
