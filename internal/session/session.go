// Package session ties one document on disk to its chapters, pages and
// reading progress.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/config"
	"github.com/metcalfc/shu/internal/navigator"
	"github.com/metcalfc/shu/internal/reader"
	"github.com/metcalfc/shu/internal/state"
)

// ErrEmptyDocument is returned when a document has no readable text.
var ErrEmptyDocument = errors.New("document has no text")

const reloadDebounce = 200 * time.Millisecond

// Session is an open document. The Navigator is replaced on Reload, so
// callers should fetch it for each operation rather than hold on to it.
type Session struct {
	path   string
	cfg    *config.Config
	store  *state.Store
	logger *slog.Logger

	mu  sync.RWMutex
	nav *navigator.Navigator
}

// Open loads path, splits it into chapters and pages and makes sure the
// store has progress for it.
func Open(path string, store *state.Store, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	s := &Session{
		path:   abs,
		cfg:    cfg,
		store:  store,
		logger: logger.With("doc", abs),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute document path used as the progress key.
func (s *Session) Path() string { return s.path }

// Navigator returns the navigator for the current parse.
func (s *Session) Navigator() *navigator.Navigator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nav
}

// SetConfig applies new parser and pagination settings and reparses.
func (s *Session) SetConfig(cfg *config.Config) error {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return s.Reload()
}

// Reload rereads the document. Stored positions are kept as they are; ids
// that no longer exist resolve to nothing until the reader moves.
func (s *Session) Reload() error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	text, err := reader.ExtractText(s.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	rules, err := reader.TitleRules(s.path)
	if err != nil {
		s.logger.Warn("format heading rules unavailable", "error", err)
	}
	opts := append(cfg.ParserOptions(rules...), book.WithParserLogger(s.logger))
	chapters := book.NewParser(opts...).Parse(text)
	if len(chapters) == 0 {
		return ErrEmptyDocument
	}

	pages := book.NewPaginator(cfg.PaginationConfig(), s.logger)
	pages.Paginate(chapters)
	index := book.NewChapterIndex(chapters)

	s.syncProgress(index.Count(), pages.Count())

	s.mu.Lock()
	s.nav = navigator.New(index, pages, s.store, s.logger)
	s.mu.Unlock()

	s.logger.Info("document loaded", "chapters", index.Count(), "pages", pages.Count())
	return nil
}

// syncProgress creates progress on first open and refreshes the totals and
// content hash afterwards. Store errors are logged.
func (s *Session) syncProgress(chapters, pages int) {
	hash, err := state.ComputeHash(s.path)
	if err != nil {
		s.logger.Warn("failed to hash document", "error", err)
	}

	prev, ok := s.store.Get(s.path)
	if !ok {
		if _, err := s.store.Initialize(s.path, filepath.Base(s.path), chapters, pages); err != nil {
			s.logger.Warn("failed to save reading progress", "error", err)
		}
	} else if prev.ContentHash != "" && hash != "" && prev.ContentHash != hash {
		s.logger.Info("document changed since last read",
			"chapter", prev.CurrentChapterID, "page", prev.CurrentPageID)
	}

	if err := s.store.SetTotals(s.path, chapters, pages, hash); err != nil {
		s.logger.Warn("failed to save reading progress", "error", err)
	}
}

// Watch reloads the session whenever the document changes on disk. Each
// reload's result is sent on the returned channel, which closes when ctx is
// done.
func (s *Session) Watch(ctx context.Context) (<-chan error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so editors that replace the file are seen.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return nil, err
	}

	results := make(chan error, 1)

	go func() {
		defer close(results)
		defer w.Close()

		timer := time.NewTimer(reloadDebounce)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				timer.Reset(reloadDebounce)
			case <-timer.C:
				err := s.Reload()
				if err != nil {
					s.logger.Warn("reload failed", "error", err)
				}
				select {
				case results <- err:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file watch error", "error", err)
			}
		}
	}()

	return results, nil
}
