//go:build !gui

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/shu/internal/session"
	"github.com/metcalfc/shu/internal/state"
)

func newTestModel(t *testing.T) (model, *state.Store) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "novel.txt")
	if err := os.WriteFile(path, []byte(testNovel), 0644); err != nil {
		t.Fatal(err)
	}
	store := state.NewStore(filepath.Join(dir, "progress.json"))
	sess, err := session.Open(path, store, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := newModel(sess, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m, store
}

func press(m model, keys ...tea.KeyMsg) model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelPaging(t *testing.T) {
	m, store := newTestModel(t)
	if m.page.ID != 1 {
		t.Fatalf("starts at page %d, want 1", m.page.ID)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRight}, runes("n"))
	if m.page.ID != 3 {
		t.Errorf("after two nexts at page %d, want 3", m.page.ID)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.page.ID != 2 {
		t.Errorf("after prev at page %d, want 2", m.page.ID)
	}

	p, _ := store.Get(m.sess.Path())
	if p.CurrentPageID != 2 || len(p.ReadPages) != 3 {
		t.Errorf("progress not recorded: %+v", p)
	}
}

func TestModelBoundary(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.page.ID != 1 || m.status != "already at the first page" {
		t.Errorf("page %d status %q", m.page.ID, m.status)
	}
	// Moving clears the notice.
	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	if m.status != "" {
		t.Errorf("status %q not cleared", m.status)
	}
}

func TestModelChapterKeys(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, runes("]"), runes("]"))
	if m.page.ChapterID != 3 {
		t.Errorf("chapter %d, want 3", m.page.ChapterID)
	}
	m = press(m, runes("["))
	if m.page.ChapterID != 2 {
		t.Errorf("chapter %d, want 2", m.page.ChapterID)
	}
}

func TestModelTOC(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, runes("t"))
	if m.mode != modeTOC || m.cursor != 0 {
		t.Fatalf("mode %v cursor %d", m.mode, m.cursor)
	}
	if !strings.Contains(m.View(), "第三章 离别") {
		t.Error("chapter list not rendered")
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead || m.page.ChapterID != 4 {
		t.Errorf("mode %v chapter %d, want reading chapter 4", m.mode, m.page.ChapterID)
	}
}

func TestModelSearch(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, runes("/"))
	if m.mode != modeSearch {
		t.Fatalf("mode %v, want search", m.mode)
	}
	m = press(m, runes("needle"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeResults {
		t.Fatalf("mode %v, want results", m.mode)
	}
	// One chapter title match and one page text match.
	if len(m.results) != 2 {
		t.Fatalf("got %d results: %+v", len(m.results), m.results)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead || m.page.ID != 3 {
		t.Errorf("mode %v page %d, want reading page 3", m.mode, m.page.ID)
	}

	m = press(m, runes("/"), runes("不存在"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead || !strings.HasPrefix(m.status, "no match") {
		t.Errorf("mode %v status %q", m.mode, m.status)
	}
}

func TestModelReload(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(m, runes("]"), runes("]"), runes("]"))

	if err := os.WriteFile(m.sess.Path(), []byte("第一章 开始\n只剩一章。\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.sess.Reload(); err != nil {
		t.Fatal(err)
	}
	next, _ := m.Update(reloadMsg{})
	m = next.(model)
	if !strings.HasPrefix(m.status, "document changed") {
		t.Errorf("status %q", m.status)
	}

	next, _ = m.Update(reloadMsg{err: errors.New("boom")})
	m = next.(model)
	if m.status != "reload failed: boom" {
		t.Errorf("status %q", m.status)
	}
}

func TestModelReloadShrinksChapterList(t *testing.T) {
	shrink := func(t *testing.T, m model) model {
		t.Helper()
		if err := os.WriteFile(m.sess.Path(), []byte("第一章 开始\n只剩一章。\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := m.sess.Reload(); err != nil {
			t.Fatal(err)
		}
		next, _ := m.Update(reloadMsg{})
		return next.(model)
	}

	t.Run("chapter list", func(t *testing.T) {
		m, _ := newTestModel(t)
		next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 4})
		m = next.(model)
		m = press(m, runes("T"))
		for range 10 {
			m = press(m, runes("j"))
		}
		if m.cursor != 3 {
			t.Fatalf("cursor %d, want 3", m.cursor)
		}

		m = shrink(t, m)
		if m.cursor != 0 {
			t.Errorf("cursor %d after reload, want 0", m.cursor)
		}
		if !strings.Contains(m.View(), "第一章 开始") {
			t.Error("chapter list not rendered after reload")
		}
		m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.mode != modeRead || m.page.ChapterID != 1 {
			t.Errorf("mode %v chapter %d, want reading chapter 1", m.mode, m.page.ChapterID)
		}
	})

	t.Run("search results", func(t *testing.T) {
		m, _ := newTestModel(t)
		m = press(m, runes("/"), runes("needle"), tea.KeyMsg{Type: tea.KeyEnter}, runes("j"))
		if m.mode != modeResults {
			t.Fatalf("mode %v, want results", m.mode)
		}

		m = shrink(t, m)
		if m.mode != modeRead || m.results != nil {
			t.Errorf("mode %v results %d, want stale results dropped", m.mode, len(m.results))
		}
		_ = m.View()
	})
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(runes("q"))
	if !next.(model).quitting || cmd == nil {
		t.Error("q did not quit")
	}
}

func TestWindow(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	tests := []struct {
		cursor, height int
		want           string
	}{
		{0, 2, "a\nb"},
		{3, 2, "c\nd"},
		{9, 2, "c\nd"},
		{2, 6, "a\nb\nc\nd\n\n"},
		{0, 0, "a"},
	}
	for _, tt := range tests {
		if got := window(lines, tt.cursor, tt.height); got != tt.want {
			t.Errorf("window(cursor=%d, height=%d) = %q, want %q", tt.cursor, tt.height, got, tt.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		content, keyword string
		radius           int
		want             string
	}{
		{"他们在山下相遇，needle 在这里。", "needle", 2, "遇，needle 在"},
		{"abc", "x", 2, ""},
		{"needle\n\nafter", "needle", 10, "needle after"},
	}
	for _, tt := range tests {
		if got := snippet(tt.content, tt.keyword, tt.radius); got != tt.want {
			t.Errorf("snippet(%q, %q) = %q, want %q", tt.content, tt.keyword, got, tt.want)
		}
	}
}
