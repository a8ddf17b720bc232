// Package state persists per-document reading progress.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultFileName is the snapshot file name inside the state directory.
	DefaultFileName = "reading_progress.json"

	appDir    = "shu"
	hashBytes = 8192 // First 8KB for content hash
)

// Progress is the reading position and history of one document.
type Progress struct {
	FilePath         string    `json:"filePath"`
	FileName         string    `json:"fileName"`
	CurrentChapterID int       `json:"currentChapterId"`
	CurrentPageID    int       `json:"currentPageId"`
	LastReadTime     time.Time `json:"-"`
	TotalChapters    int       `json:"totalChapters"`
	TotalPages       int       `json:"totalPages"`
	ReadPages        []int     `json:"readPages"`
	ContentHash      string    `json:"contentHash,omitempty"`
}

type progressJSON Progress

type progressWire struct {
	progressJSON
	LastReadTime int64 `json:"lastReadTime"`
}

// MarshalJSON writes LastReadTime as epoch milliseconds.
func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(progressWire{
		progressJSON: progressJSON(p),
		LastReadTime: p.LastReadTime.UnixMilli(),
	})
}

// UnmarshalJSON reads LastReadTime from epoch milliseconds.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var w progressWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Progress(w.progressJSON)
	if w.LastReadTime != 0 {
		p.LastReadTime = time.UnixMilli(w.LastReadTime)
	}
	return nil
}

func (p Progress) clone() Progress {
	p.ReadPages = slices.Clone(p.ReadPages)
	return p
}

// HasRead reports whether pageID is in the read history.
func (p Progress) HasRead(pageID int) bool {
	return slices.Contains(p.ReadPages, pageID)
}

// ReadingStats summarizes how much of a document has been read.
type ReadingStats struct {
	ReadPages       int `json:"readPages" yaml:"read_pages"`
	TotalPages      int `json:"totalPages" yaml:"total_pages"`
	ProgressPercent int `json:"progressPercent" yaml:"progress_percent"`
}

// Store manages persistent reading progress. The whole map is rewritten on
// every mutation; Load must be called explicitly to pick up a snapshot.
type Store struct {
	path   string
	data   map[string]*Progress
	order  []string
	mu     sync.RWMutex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for LastReadTime.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for absorbed errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates an empty store backed by the snapshot at path. If path is
// empty the snapshot lives in DefaultDir.
func NewStore(path string, opts ...Option) *Store {
	if path == "" {
		path = filepath.Join(DefaultDir(), DefaultFileName)
	}
	s := &Store{
		path:   path,
		data:   make(map[string]*Progress),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir returns XDG_STATE_HOME/shu or ~/.local/state/shu
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appDir)
}

// SetLogger replaces the logger used for absorbed errors.
func (s *Store) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// Path returns the snapshot location.
func (s *Store) Path() string { return s.path }

// ComputeHash generates a content hash for change detection
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

// Get returns a copy of the progress recorded for path.
func (s *Store) Get(path string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[path]
	if !ok {
		return Progress{}, false
	}
	return p.clone(), true
}

// Initialize records fresh progress for path at chapter 1, page 1, replacing
// any existing entry, and persists it. The returned progress is valid even
// when persisting fails.
func (s *Store) Initialize(path, fileName string, totalChapters, totalPages int) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Progress{
		FilePath:         path,
		FileName:         fileName,
		CurrentChapterID: 1,
		CurrentPageID:    1,
		LastReadTime:     s.now(),
		TotalChapters:    totalChapters,
		TotalPages:       totalPages,
		ReadPages:        []int{1},
	}
	s.put(path, p)
	return p.clone(), s.persist()
}

// Update moves the position for path and records pageID as read. It does
// nothing if path has no progress yet.
func (s *Store) Update(path string, chapterID, pageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[path]
	if !ok {
		return nil
	}
	p.CurrentChapterID = chapterID
	p.CurrentPageID = pageID
	p.LastReadTime = s.now()
	if !slices.Contains(p.ReadPages, pageID) {
		p.ReadPages = append(p.ReadPages, pageID)
	}
	return s.persist()
}

// SetTotals refreshes the document size recorded for path without touching
// the position or history. Unknown paths are ignored.
func (s *Store) SetTotals(path string, totalChapters, totalPages int, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[path]
	if !ok {
		return nil
	}
	if p.TotalChapters == totalChapters && p.TotalPages == totalPages && p.ContentHash == contentHash {
		return nil
	}
	p.TotalChapters = totalChapters
	p.TotalPages = totalPages
	p.ContentHash = contentHash
	return s.persist()
}

// Clear removes saved progress for path.
func (s *Store) Clear(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[path]; !ok {
		return nil
	}
	delete(s.data, path)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == path })
	return s.persist()
}

// Stats returns read and total page counts for path. Unknown paths and
// documents without pages report zeros.
func (s *Store) Stats(path string) ReadingStats {
	p, ok := s.Get(path)
	if !ok {
		return ReadingStats{}
	}
	st := ReadingStats{ReadPages: len(p.ReadPages), TotalPages: p.TotalPages}
	if p.TotalPages > 0 {
		st.ProgressPercent = (200*st.ReadPages + p.TotalPages) / (2 * p.TotalPages)
	}
	return st
}

// List returns all progress entries, most recently read first.
func (s *Store) List() []Progress {
	s.mu.RLock()
	out := make([]Progress, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.data[k].clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastReadTime.After(out[j].LastReadTime)
	})
	return out
}

// Load replaces the in-memory state with the snapshot on disk. A missing or
// unreadable snapshot leaves the store empty; the error is logged, not
// returned.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*Progress)
	s.order = nil
	if err := s.load(); err != nil {
		s.logger.Warn("reading progress snapshot unusable, starting empty",
			"path", s.path, "error", err)
		s.data = make(map[string]*Progress)
		s.order = nil
	}
}

func (s *Store) put(path string, p *Progress) {
	if _, ok := s.data[path]; !ok {
		s.order = append(s.order, path)
	}
	s.data[path] = p
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for i, raw := range entries {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			return fmt.Errorf("entry %d: want [path, progress] pair", i)
		}
		var key string
		if err := json.Unmarshal(pair[0], &key); err != nil {
			return fmt.Errorf("entry %d path: %w", i, err)
		}
		var p Progress
		if err := json.Unmarshal(pair[1], &p); err != nil {
			return fmt.Errorf("entry %d progress: %w", i, err)
		}
		if p.ReadPages == nil {
			p.ReadPages = []int{}
		}
		s.put(key, &p)
	}
	return nil
}

// persist writes the whole map as an ordered [path, progress] list. Callers
// hold s.mu.
func (s *Store) persist() error {
	entries := make([][2]any, 0, len(s.order))
	for _, k := range s.order {
		entries = append(entries, [2]any{k, s.data[k]})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return retry.Do(
		func() error { return writeFileAtomic(s.path, data) },
		retry.Attempts(3),
		retry.Delay(20*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
