//go:build !gui

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/navigator"
	"github.com/metcalfc/shu/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFAA00"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

const readControls = "←/→: page  [/]: chapter  ↑/↓: scroll  T: chapters  /: search  Q: quit"

type viewMode int

const (
	modeRead viewMode = iota
	modeTOC
	modeSearch
	modeResults
)

type searchResult struct {
	label  string
	pageID int
}

type reloadMsg struct{ err error }

type model struct {
	sess *session.Session
	page book.Page

	mode     viewMode
	viewport viewport.Model
	input    textinput.Model
	cursor   int
	results  []searchResult

	status   string
	reloads  <-chan error
	quitting bool
	width    int
	height   int
}

func newModel(sess *session.Session, reloads <-chan error) (model, error) {
	pg, err := sess.Navigator().ContinueReading(sess.Path())
	if err != nil {
		return model{}, err
	}

	input := textinput.New()
	input.Placeholder = "chapter title or page text"
	input.Prompt = "/ "
	input.CharLimit = 64

	m := model{
		sess:     sess,
		page:     pg,
		viewport: viewport.New(80, 22),
		input:    input,
		reloads:  reloads,
		width:    80,
		height:   24,
	}
	m.setContent()
	return m, nil
}

func (m model) nav() *navigator.Navigator { return m.sess.Navigator() }

func (m model) Init() tea.Cmd {
	return waitForReload(m.reloads)
}

func waitForReload(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return reloadMsg{err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Reserve 2 lines: 1 for status at top, 1 for controls at bottom
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.setContent()
		return m, nil

	case reloadMsg:
		m.afterReload(msg.err)
		return m, waitForReload(m.reloads)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeTOC:
			return m.updateTOC(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeResults:
			return m.updateResults(msg)
		}
		return m.updateRead(msg)
	}
	return m, nil
}

func (m model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	doc := m.sess.Path()
	switch msg.String() {
	case "right", "l", "n":
		m.move(m.nav().NextPage(doc, m.page.ID))
	case "left", "h", "p":
		m.move(m.nav().PrevPage(doc, m.page.ID))
	case "]":
		m.move(m.nav().NextChapter(doc, m.page.ChapterID))
	case "[":
		m.move(m.nav().PrevChapter(doc, m.page.ChapterID))
	case "t", "T":
		m.mode = modeTOC
		m.cursor, _ = m.nav().Chapters().Position(m.page.ChapterID)
	case "/":
		m.mode = modeSearch
		m.input.SetValue("")
		return m, m.input.Focus()
	case "q", "Q":
		m.quitting = true
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := m.nav().Chapters().Count()
	switch msg.String() {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, count-1)
	case "pgup":
		m.cursor = max(m.cursor-m.viewport.Height, 0)
	case "pgdown":
		m.cursor = min(m.cursor+m.viewport.Height, count-1)
	case "enter":
		if ch, ok := m.nav().Chapters().ByPosition(m.cursor); ok {
			m.move(m.nav().JumpToChapter(m.sess.Path(), ch.ID))
		}
		m.mode = modeRead
	case "esc", "t", "T", "q":
		m.mode = modeRead
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.input.Blur()
		m.results = m.search(strings.TrimSpace(m.input.Value()))
		m.cursor = 0
		if len(m.results) == 0 {
			m.status = fmt.Sprintf("no match for %q", m.input.Value())
			m.mode = modeRead
			return m, nil
		}
		m.mode = modeResults
		return m, nil
	case "esc":
		m.input.Blur()
		m.mode = modeRead
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.results)-1)
	case "enter":
		if m.cursor < len(m.results) {
			m.move(m.nav().JumpToPage(m.sess.Path(), m.results[m.cursor].pageID))
		}
		m.mode = modeRead
	case "esc", "q":
		m.mode = modeRead
	}
	return m, nil
}

// search lists chapter title matches first, then page text matches.
func (m model) search(keyword string) []searchResult {
	if keyword == "" {
		return nil
	}
	nav := m.nav()
	doc := m.sess.Path()
	var out []searchResult
	for _, ch := range nav.SearchChapters(doc, keyword) {
		pages := nav.Pages().ChapterPages(ch.ID)
		if len(pages) == 0 {
			continue
		}
		out = append(out, searchResult{label: ch.Title, pageID: pages[0].ID})
	}
	for _, pg := range nav.SearchPages(doc, keyword) {
		out = append(out, searchResult{
			label:  fmt.Sprintf("%s, page %d: %s", pg.Title, pg.ID, snippet(pg.Content, keyword, 16)),
			pageID: pg.ID,
		})
	}
	return out
}

// snippet returns the text around the first match of keyword.
func snippet(content, keyword string, radius int) string {
	i := strings.Index(content, keyword)
	if i < 0 {
		return ""
	}
	before := []rune(content[:i])
	after := []rune(content[i+len(keyword):])
	if len(before) > radius {
		before = before[len(before)-radius:]
	}
	if len(after) > radius {
		after = after[:radius]
	}
	s := string(before) + keyword + string(after)
	return strings.Join(strings.Fields(s), " ")
}

func (m *model) move(pg book.Page, err error) {
	if err != nil {
		m.status = err.Error()
		return
	}
	m.page = pg
	m.status = ""
	m.setContent()
	m.viewport.GotoTop()
}

func (m *model) afterReload(err error) {
	if err != nil {
		m.status = "reload failed: " + err.Error()
		return
	}
	m.results = nil
	if m.mode == modeResults {
		m.mode = modeRead
	}
	m.cursor = max(min(m.cursor, m.nav().Chapters().Count()-1), 0)
	pos := m.nav().CurrentPosition(m.sess.Path())
	if pos.Page == nil {
		m.status = "document changed: saved page no longer exists, press T to pick a chapter"
		return
	}
	m.page = *pos.Page
	m.status = "document reloaded"
	m.setContent()
}

func (m *model) setContent() {
	body := titleStyle.Render(m.page.Title) + "\n\n" + m.page.Content
	if m.viewport.Width > 0 {
		body = lipgloss.NewStyle().Width(m.viewport.Width).Render(body)
	}
	m.viewport.SetContent(body)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")

	switch m.mode {
	case modeTOC:
		sb.WriteString(m.tocView())
	case modeSearch:
		sb.WriteString(m.input.View())
		sb.WriteString(strings.Repeat("\n", max(m.viewport.Height-1, 0)))
	case modeResults:
		sb.WriteString(m.resultsView())
	default:
		sb.WriteString(m.viewport.View())
	}

	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(noticeStyle.Render(m.status))
	} else {
		sb.WriteString(controlsStyle.Render(m.controls()))
	}
	return sb.String()
}

func (m model) controls() string {
	switch m.mode {
	case modeTOC:
		return "↑/↓: move  ENTER: open chapter  ESC: back"
	case modeSearch:
		return "ENTER: search  ESC: cancel"
	case modeResults:
		return "↑/↓: move  ENTER: open page  ESC: back"
	}
	return readControls
}

func (m model) statusLine() string {
	nav := m.nav()
	pos, _ := nav.Chapters().Position(m.page.ChapterID)
	cp := nav.ChapterProgress(m.sess.Path(), m.page.ChapterID)
	return statusStyle.Render(fmt.Sprintf("Page %d/%d | Chapter %d/%d | %d%% of chapter read",
		m.page.ID, nav.Pages().Count(), pos+1, nav.Chapters().Count(), cp.Percent))
}

func (m model) tocView() string {
	chapters := m.nav().Chapters().All()
	lines := make([]string, len(chapters))
	for i, ch := range chapters {
		line := fmt.Sprintf("%d. %s (%d 字)", ch.ID, ch.Title, ch.WordCount)
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case ch.ID == m.page.ChapterID:
			line = currentStyle.Render(line)
		}
		lines[i] = line
	}
	return window(lines, m.cursor, m.viewport.Height)
}

func (m model) resultsView() string {
	lines := make([]string, len(m.results))
	for i, r := range m.results {
		if i == m.cursor {
			lines[i] = cursorStyle.Render(r.label)
		} else {
			lines[i] = r.label
		}
	}
	return window(lines, m.cursor, m.viewport.Height)
}

// window returns height lines of a list, scrolled so cursor is visible.
func window(lines []string, cursor, height int) string {
	height = max(height, 1)
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	start = max(0, min(start, len(lines)-height))
	end := min(start+height, len(lines))
	out := lines[start:end]
	pad := height - len(out)
	return strings.Join(out, "\n") + strings.Repeat("\n", max(pad, 0))
}

func runReader(ctx context.Context, sess *session.Session, reloads <-chan error) error {
	m, err := newModel(sess, reloads)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
