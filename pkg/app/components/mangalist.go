package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
)

// cardHeight is the number of rows one rendered card occupies.
const cardHeight = 6

type MangaListItem struct {
	Manga    data.Manga
	LastRead string // library entries only
	Visited  int
}

type MangaList struct {
	Items         []MangaListItem
	SelectedIndex int
	Width         int
	Height        int
	Wrap          bool
	Empty         string
}

func NewMangaList() *MangaList {
	return &MangaList{
		Items:  []MangaListItem{},
		Width:  80,
		Height: 20,
		Wrap:   true,
		Empty:  "No manga in library",
	}
}

func (m *MangaList) SetItems(items []MangaListItem) {
	m.Items = items
	if m.SelectedIndex >= len(items) && len(items) > 0 {
		m.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		m.SelectedIndex = 0
	}
}

func (m *MangaList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex++
	if m.SelectedIndex >= len(m.Items) {
		if m.Wrap {
			m.SelectedIndex = 0
		} else {
			m.SelectedIndex = len(m.Items) - 1
		}
	}
}

func (m *MangaList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		if m.Wrap {
			m.SelectedIndex = len(m.Items) - 1
		} else {
			m.SelectedIndex = 0
		}
	}
}

func (m *MangaList) Selected() *MangaListItem {
	if len(m.Items) == 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

// window returns the range of items that fit on screen with the selection visible.
func (m *MangaList) window() (int, int) {
	per := m.Height / cardHeight
	if per < 1 {
		per = 1
	}
	start := 0
	if m.SelectedIndex >= per {
		start = m.SelectedIndex - per + 1
	}
	end := start + per
	if end > len(m.Items) {
		end = len(m.Items)
	}
	return start, end
}

func (m *MangaList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render(m.Empty)
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	inner := m.Width - 8
	if inner < 10 {
		inner = 10
	}

	var b strings.Builder
	start, end := m.window()
	for i := start; i < end; i++ {
		item := m.Items[i]
		cardStyle := styles.CardStyle
		if i == m.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		title := styles.TitleStyle.Render(runewidth.Truncate(DisplayTitle(item.Manga), inner, "…"))
		badge := styles.BadgeStyle.Render(Badge(item))

		details := []string{item.Manga.Slug}
		if item.Visited > 0 {
			details = append(details, fmt.Sprintf("%d chapters visited", item.Visited))
		}
		if item.Manga.DefaultThumbnail == "" {
			details = append(details, "no cover")
		}
		info := styles.MutedStyle.Render(wordwrap.String(strings.Join(details, " • "), inner))

		cardContent := lipgloss.JoinVertical(lipgloss.Left, title, badge, info)
		b.WriteString(cardStyle.Width(m.Width - 4).Render(cardContent))
		b.WriteString("\n")
	}

	if len(m.Items) > end-start {
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%d / %d", m.SelectedIndex+1, len(m.Items))))
	}
	return b.String()
}

// DisplayTitle falls back to the slug when the catalog sent no title.
func DisplayTitle(m data.Manga) string {
	if m.DisplayTitle != "" {
		return m.DisplayTitle
	}
	return m.Slug
}

// Badge is the chapter line of a card: reading progress for library
// entries, the latest chapter for browse entries.
func Badge(item MangaListItem) string {
	if item.LastRead != "" {
		return "Last Read: Ch. " + item.LastRead
	}
	if label := item.Manga.LastChapter.String(); label != "" {
		return "Ch. " + label
	}
	return "Ch. ?"
}
