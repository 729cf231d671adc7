package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/services"
)

type BrowseScreen struct {
	ctx       context.Context
	cache     *services.BrowseCache
	mangaList *components.MangaList
	sentinel  components.Sentinel
	lookahead int
	spinner   spinner.Model
	width     int
	height    int
}

func NewBrowseScreen(ctx context.Context, controller *services.MangaController) *BrowseScreen {
	list := components.NewMangaList()
	list.Wrap = false
	list.Empty = "No manga loaded yet"

	s := &BrowseScreen{
		ctx:       ctx,
		cache:     controller.Browse(),
		mangaList: list,
		lookahead: controller.Lookahead(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	s.refresh()
	return s
}

func (s *BrowseScreen) Init() tea.Cmd {
	return tea.Batch(s.mount(), s.spinner.Tick)
}

func (s *BrowseScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.mangaList.Width = msg.Width - 4
		s.mangaList.Height = msg.Height - 9

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.mangaList.Prev()
			return s, s.observe()
		case "down", "j":
			s.mangaList.Next()
			return s, s.observe()
		case "c":
			s.sentinel.Reset()
			s.mangaList.SelectedIndex = 0
			return s, tea.Batch(s.clear(), s.spinner.Tick)
		case "r":
			return s, tea.Batch(s.mount(), s.spinner.Tick)
		case "enter":
			if selected := s.mangaList.Selected(); selected != nil {
				manga := selected.Manga
				return s, func() tea.Msg { return OpenReaderMsg{Manga: manga} }
			}
		}

	case browseUpdatedMsg:
		s.refresh()
		// still inside the zone after a completed load counts as a new edge
		if state := s.cache.Snapshot(); state.HasMore && !s.cache.Loading() {
			s.sentinel.Reset()
		}
		return s, s.observe()

	case spinner.TickMsg:
		if !s.cache.Loading() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *BrowseScreen) refresh() {
	state := s.cache.Snapshot()
	items := make([]components.MangaListItem, len(state.Items))
	for i, m := range state.Items {
		items[i] = components.MangaListItem{Manga: m}
	}
	s.mangaList.SetItems(items)
}

// observe advances the catalog when the selection reaches the end of the list.
func (s *BrowseScreen) observe() tea.Cmd {
	n := len(s.mangaList.Items)
	visible := n > 0 && components.NearEnd(s.mangaList.SelectedIndex, n, s.lookahead)
	if !s.sentinel.Observe(visible) {
		return nil
	}
	return tea.Batch(s.advance(), s.spinner.Tick)
}

func (s *BrowseScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Browse")
	state := s.cache.Snapshot()

	var status string
	switch {
	case s.cache.Loading():
		status = styles.StatusDownloading.Render(s.spinner.View() + " Loading page " + fmt.Sprint(state.Page))
	case !state.HasMore:
		status = styles.MutedStyle.Render("No more results")
	default:
		status = styles.MutedStyle.Render(fmt.Sprintf("%d titles • page %d", len(state.Items), state.Page))
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: read • c: clear cache • r: retry • tab: library • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s\n%s\n%s", header, s.mangaList.View(), status, help)
}

// Commands
func (s *BrowseScreen) mount() tea.Cmd {
	return func() tea.Msg {
		s.cache.Mount(s.ctx)
		return browseUpdatedMsg{}
	}
}

func (s *BrowseScreen) advance() tea.Cmd {
	return func() tea.Msg {
		s.cache.Advance(s.ctx)
		return browseUpdatedMsg{}
	}
}

func (s *BrowseScreen) clear() tea.Cmd {
	return func() tea.Msg {
		s.cache.Clear()
		s.cache.Mount(s.ctx)
		return browseUpdatedMsg{}
	}
}
