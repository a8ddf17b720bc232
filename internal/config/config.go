// Package config loads reader settings from defaults, an optional YAML file
// and SHU_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/state"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config. An
// empty cfgFile searches ./shu.yaml and the user config directory.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := DefaultConfig()
	v.SetDefault("pagination.mode", d.Pagination.Mode)
	v.SetDefault("pagination.max_words_per_page", d.Pagination.MaxWordsPerPage)
	v.SetDefault("pagination.max_pages_per_chapter", d.Pagination.MaxPagesPerChapter)
	v.SetDefault("parser.segment_length", d.Parser.SegmentLength)
	v.SetDefault("parser.max_title_length", d.Parser.MaxTitleLength)
	v.SetDefault("parser.preamble_title", d.Parser.PreambleTitle)
	v.SetDefault("progress.dir", d.Progress.Dir)
	v.SetDefault("progress.file", d.Progress.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	// SHU_PAGINATION_MODE overrides pagination.mode.
	v.SetEnvPrefix("SHU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("shu")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	// The config file is optional.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// FileUsed returns the config file that was read, if any.
func (cm *Manager) FileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of the config file. An edit that fails
// to load or validate is logged and the previous config stays in effect.
func (cm *Manager) WatchConfig() {
	if cm.FileUsed() == "" {
		return
	}
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

func (cm *Manager) reload(name string) {
	if err := cm.v.ReadInConfig(); err != nil {
		slog.Warn("ignoring config change", "file", name, "error", err)
		return
	}
	cfg, err := cm.load()
	if err != nil {
		slog.Warn("ignoring config change", "file", name, "error", err)
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Dir returns $XDG_CONFIG_HOME/shu, falling back to ~/.config/shu.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "shu")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shu")
}

// DefaultPath is where init-config writes when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "shu.yaml")
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# shu configuration
# Every key can be overridden with an environment variable, for example
# SHU_PAGINATION_MAX_WORDS_PER_PAGE=2000. pagination.mode is one of
# words, chapter or paragraph.

`)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, append(header, data...), 0o644)
}

// ProgressPath returns the reading progress snapshot path.
func (c *Config) ProgressPath() string {
	dir := c.Progress.Dir
	if dir == "" {
		dir = state.DefaultDir()
	}
	return filepath.Join(dir, c.Progress.File)
}

// LogPath returns the log file used by the interactive readers.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir := c.Progress.Dir
	if dir == "" {
		dir = state.DefaultDir()
	}
	return filepath.Join(dir, "shu.log")
}

// PaginationConfig converts the pagination settings for book.Paginator.
func (c *Config) PaginationConfig() book.PaginationConfig {
	mode, _ := book.ParseSplitMode(c.Pagination.Mode)
	return book.PaginationConfig{
		Mode:               mode,
		MaxWordsPerPage:    c.Pagination.MaxWordsPerPage,
		MaxPagesPerChapter: c.Pagination.MaxPagesPerChapter,
	}
}

// ParserOptions returns the book.Parser options for the parser settings,
// with extra heading rules ahead of the built-in patterns.
func (c *Config) ParserOptions(extra ...book.TitleRule) []book.ParserOption {
	return []book.ParserOption{
		book.WithTitleRules(book.DefaultTitleRules(c.Parser.MaxTitleLength, extra...)...),
		book.WithSegmentLength(c.Parser.SegmentLength),
		book.WithPreambleTitle(c.Parser.PreambleTitle),
	}
}

// LogLevel parses log.level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
