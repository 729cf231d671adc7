package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/services"
)

type LibraryScreen struct {
	ctx        context.Context
	controller *services.MangaController
	mangaList  *components.MangaList
	tracker    *components.ProgressTracker
	width      int
	height     int
	err        error
}

func NewLibraryScreen(ctx context.Context, controller *services.MangaController) *LibraryScreen {
	return &LibraryScreen{
		ctx:        ctx,
		controller: controller,
		mangaList:  components.NewMangaList(),
		tracker:    components.NewProgressTracker(80),
	}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadLibrary
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.mangaList.Width = msg.Width - 4
		s.mangaList.Height = msg.Height - 12
		s.tracker.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.mangaList.Prev()
		case "down", "j":
			s.mangaList.Next()
		case "r":
			return s, s.loadLibrary
		case "d":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, s.removeManga(selected.Manga.Slug)
			}
		case "e":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, s.exportChapter(*selected)
			}
		case "enter":
			if selected := s.mangaList.Selected(); selected != nil {
				manga := selected.Manga
				return s, func() tea.Msg { return OpenReaderMsg{Manga: manga} }
			}
		}

	case libraryLoadedMsg:
		s.mangaList.SetItems(msg.items)

	case mangaRemovedMsg:
		s.err = msg.err
		return s, s.loadLibrary

	case services.ExportProgress:
		s.tracker.Update(msg)
		return s, s.listenForProgress
	}

	return s, nil
}

func (s *LibraryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Library")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: continue reading • e: export chapter • d: remove • r: refresh • tab: browse • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s%s", header, errorMsg, s.mangaList.View(), s.tracker.View(), help)
}

// Messages
type libraryLoadedMsg struct {
	items []components.MangaListItem
}

type mangaRemovedMsg struct {
	err error
}

// Commands
func (s *LibraryScreen) loadLibrary() tea.Msg {
	entries := s.controller.Library().List()
	items := make([]components.MangaListItem, len(entries))
	for i, e := range entries {
		items[i] = components.MangaListItem{
			Manga:    e.Manga,
			LastRead: e.LastReadChapter,
			Visited:  s.controller.VisitedChapters(e.Slug),
		}
	}
	return libraryLoadedMsg{items: items}
}

func (s *LibraryScreen) removeManga(slug string) tea.Cmd {
	return func() tea.Msg {
		return mangaRemovedMsg{err: s.controller.Library().Remove(slug)}
	}
}

func (s *LibraryScreen) exportChapter(item components.MangaListItem) tea.Cmd {
	return func() tea.Msg {
		entry, err := s.controller.Library().Get(item.Manga.Slug)
		if err != nil {
			return mangaRemovedMsg{err: err}
		}
		// progress and the result arrive on the exporter's channel
		s.controller.Exporter().ExportChapter(s.ctx, entry.Manga, entry.LastReadHid, entry.LastReadChapter)
		return nil
	}
}

func (s *LibraryScreen) listenForProgress() tea.Msg {
	select {
	case p := <-s.controller.Exporter().Progress():
		return p
	case <-s.ctx.Done():
		return nil
	}
}
