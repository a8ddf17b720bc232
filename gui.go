//go:build gui

package main

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/shu/internal/book"
	"github.com/metcalfc/shu/internal/session"
)

type guiModel struct {
	sess *session.Session
	page book.Page

	title   *widget.Label
	content *widget.Label
	status  *widget.Label
	scroll  *container.Scroll
	toc     *widget.List
}

func (m *guiModel) move(pg book.Page, err error) {
	if err != nil {
		m.status.SetText(err.Error())
		return
	}
	m.page = pg
	m.render("")
}

func (m *guiModel) render(notice string) {
	nav := m.sess.Navigator()
	m.title.SetText(m.page.Title)
	m.content.SetText(m.page.Content)
	m.scroll.ScrollToTop()

	pos, _ := nav.Chapters().Position(m.page.ChapterID)
	cp := nav.ChapterProgress(m.sess.Path(), m.page.ChapterID)
	text := fmt.Sprintf("Page %d/%d | Chapter %d/%d | %d%% of chapter read",
		m.page.ID, nav.Pages().Count(), pos+1, nav.Chapters().Count(), cp.Percent)
	if notice != "" {
		text += " | " + notice
	}
	m.status.SetText(text)
	m.toc.Select(pos)
}

func (m *guiModel) afterReload(err error) {
	if err != nil {
		m.status.SetText("reload failed: " + err.Error())
		return
	}
	m.toc.Refresh()
	pos := m.sess.Navigator().CurrentPosition(m.sess.Path())
	if pos.Page == nil {
		m.status.SetText("document changed: saved page no longer exists, pick a chapter")
		return
	}
	m.page = *pos.Page
	m.render("document reloaded")
}

func runReader(ctx context.Context, sess *session.Session, reloads <-chan error) error {
	pg, err := sess.Navigator().ContinueReading(sess.Path())
	if err != nil {
		return err
	}

	a := app.New()
	w := a.NewWindow("shu - " + pg.Title)

	m := &guiModel{
		sess:    sess,
		page:    pg,
		title:   widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		content: widget.NewLabel(""),
		status:  widget.NewLabel(""),
	}
	m.content.Wrapping = fyne.TextWrapWord
	m.status.Alignment = fyne.TextAlignCenter
	m.scroll = container.NewVScroll(m.content)

	m.toc = widget.NewList(
		func() int { return sess.Navigator().Chapters().Count() },
		func() fyne.CanvasObject { return widget.NewLabel("Title") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if ch, ok := sess.Navigator().Chapters().ByPosition(id); ok {
				obj.(*widget.Label).SetText(fmt.Sprintf("%d. %s", ch.ID, ch.Title))
			}
		},
	)
	m.toc.OnSelected = func(id widget.ListItemID) {
		ch, ok := sess.Navigator().Chapters().ByPosition(id)
		if !ok || ch.ID == m.page.ChapterID {
			return
		}
		m.move(sess.Navigator().JumpToChapter(sess.Path(), ch.ID))
	}

	doc := sess.Path()
	buttons := container.NewHBox(
		widget.NewButton("« Chapter", func() { m.move(sess.Navigator().PrevChapter(doc, m.page.ChapterID)) }),
		widget.NewButton("‹ Page", func() { m.move(sess.Navigator().PrevPage(doc, m.page.ID)) }),
		widget.NewButton("Page ›", func() { m.move(sess.Navigator().NextPage(doc, m.page.ID)) }),
		widget.NewButton("Chapter »", func() { m.move(sess.Navigator().NextChapter(doc, m.page.ChapterID)) }),
	)

	readingContent := container.NewBorder(
		m.title,
		container.NewVBox(m.status, container.NewCenter(buttons)),
		nil, nil,
		m.scroll,
	)
	tocContainer := container.NewBorder(widget.NewLabel("Chapters"), nil, nil, nil, m.toc)
	split := container.NewHSplit(tocContainer, readingContent)
	split.Offset = 0.3

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyRight, fyne.KeyPageDown:
			m.move(sess.Navigator().NextPage(doc, m.page.ID))
		case fyne.KeyLeft, fyne.KeyPageUp:
			m.move(sess.Navigator().PrevPage(doc, m.page.ID))
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyQ:
			a.Quit()
		}
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				fyne.Do(a.Quit)
				return
			case err, ok := <-reloads:
				if !ok {
					reloads = nil
					continue
				}
				fyne.Do(func() { m.afterReload(err) })
			}
		}
	}()

	w.SetOnClosed(stop)
	w.Resize(fyne.NewSize(900, 650))
	w.SetContent(split)
	m.render("")

	w.ShowAndRun()
	stop()
	return nil
}
