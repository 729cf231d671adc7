package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/data"
)

type chapterEntry struct {
	chapter data.ChapterItem
	current bool
}

func (e chapterEntry) Title() string {
	if e.current {
		return fmt.Sprintf("Ch. %s (reading)", e.chapter.Chap)
	}
	return "Ch. " + e.chapter.Chap
}

func (e chapterEntry) Description() string { return e.chapter.Title }
func (e chapterEntry) FilterValue() string { return e.chapter.Chap + " " + e.chapter.Title }

// ChapterPicker is a filterable list of chapters in reading order.
type ChapterPicker struct {
	list list.Model
}

func NewChapterPicker(chapters []data.ChapterItem, currentHid string, width, height int) *ChapterPicker {
	items := make([]list.Item, len(chapters))
	selected := 0
	for i, c := range chapters {
		items[i] = chapterEntry{chapter: c, current: c.Hid == currentHid}
		if c.Hid == currentHid {
			selected = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Chapters"
	l.SetShowStatusBar(true)
	l.DisableQuitKeybindings()
	l.Select(selected)
	return &ChapterPicker{list: l}
}

func (p *ChapterPicker) SetSize(width, height int) {
	p.list.SetSize(width, height)
}

// Filtering reports whether the user is typing a filter.
func (p *ChapterPicker) Filtering() bool {
	return p.list.FilterState() == list.Filtering
}

// Update returns the picked chapter once the user confirms a selection.
func (p *ChapterPicker) Update(msg tea.Msg) (*data.ChapterItem, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && !p.Filtering() && key.Matches(k, key.NewBinding(key.WithKeys("enter"))) {
		if e, ok := p.list.SelectedItem().(chapterEntry); ok {
			c := e.chapter
			return &c, nil
		}
		return nil, nil
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return nil, cmd
}

func (p *ChapterPicker) View() string {
	return p.list.View()
}
