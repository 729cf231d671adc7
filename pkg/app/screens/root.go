package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/services"
)

const tabsHeight = 2

type RootScreen struct {
	ctx        context.Context
	controller *services.MangaController

	currentTab data.Tab
	browse     *BrowseScreen
	library    *LibraryScreen
	reader     *ReaderScreen

	width  int
	height int
}

func NewRootScreen(ctx context.Context, controller *services.MangaController) *RootScreen {
	return &RootScreen{
		ctx:        ctx,
		controller: controller,
		currentTab: controller.ActiveTab(),
		browse:     NewBrowseScreen(ctx, controller),
		library:    NewLibraryScreen(ctx, controller),
	}
}

func (r *RootScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{r.browse.Init(), r.library.Init(), r.library.listenForProgress}
	// an interrupted session reopens straight into the reader
	if r.controller.Reader().Resume() {
		r.reader = NewReaderScreen(r.ctx, r.controller)
		cmds = append(cmds, r.reader.Init())
	}
	return tea.Batch(cmds...)
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - tabsHeight}
		r.browse.Update(inner)
		r.library.Update(inner)
		if r.reader != nil {
			r.reader.Update(msg)
		}
		return r, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return r, tea.Quit
		}
		if r.reader != nil {
			return r, r.forwardReader(msg)
		}
		switch msg.String() {
		case "q":
			return r, tea.Quit
		case "tab":
			r.switchTab()
			if r.currentTab == data.TabLibrary {
				return r, r.library.loadLibrary
			}
			return r, nil
		}

	case OpenReaderMsg:
		r.controller.Reader().Open(msg.Manga)
		r.reader = NewReaderScreen(r.ctx, r.controller)
		r.reader.Update(tea.WindowSizeMsg{Width: r.width, Height: r.height})
		return r, r.reader.Init()

	case CloseReaderMsg:
		r.reader = nil
		return r, r.library.loadLibrary

	case browseUpdatedMsg:
		_, cmd := r.browse.Update(msg)
		return r, cmd

	case libraryLoadedMsg, mangaRemovedMsg, services.ExportProgress:
		_, cmd := r.library.Update(msg)
		return r, cmd

	case chapterLoadedMsg, restoreScrollMsg, pageResolvedMsg:
		return r, r.forwardReader(msg)

	case spinner.TickMsg:
		// each spinner ignores ticks carrying another spinner's id
		_, browseCmd := r.browse.Update(msg)
		return r, tea.Batch(browseCmd, r.forwardReader(msg))
	}

	if r.reader != nil {
		return r, r.forwardReader(msg)
	}

	switch r.currentTab {
	case data.TabLibrary:
		_, cmd := r.library.Update(msg)
		return r, cmd
	default:
		_, cmd := r.browse.Update(msg)
		return r, cmd
	}
}

func (r *RootScreen) forwardReader(msg tea.Msg) tea.Cmd {
	if r.reader == nil {
		return nil
	}
	_, cmd := r.reader.Update(msg)
	return cmd
}

func (r *RootScreen) switchTab() {
	if r.currentTab == data.TabLibrary {
		r.currentTab = data.TabBrowse
	} else {
		r.currentTab = data.TabLibrary
	}
	r.controller.SetActiveTab(r.currentTab)
}

// Shutdown stops the reader's periodic save without closing the session, so
// the next start resumes where the user left off.
func (r *RootScreen) Shutdown() {
	if r.reader != nil {
		r.reader.Suspend()
	}
}

func (r *RootScreen) View() string {
	if r.reader != nil {
		return r.reader.View()
	}

	var content string
	switch r.currentTab {
	case data.TabLibrary:
		content = r.library.View()
	default:
		content = r.browse.View()
	}

	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	browseTab := "Browse"
	libraryTab := "Library"

	if r.currentTab == data.TabLibrary {
		browseTab = styles.InactiveTabStyle.Render(browseTab)
		libraryTab = styles.ActiveTabStyle.Render(libraryTab)
	} else {
		browseTab = styles.ActiveTabStyle.Render(browseTab)
		libraryTab = styles.InactiveTabStyle.Render(libraryTab)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, browseTab, libraryTab)
}
