package screens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/services"
	"github.com/kerbaras/mangaread/pkg/sources"
)

const (
	failedMessage = "Failed to load content or chapter unavailable."

	minPageRows = 4
	maxPageRows = 40
)

// ReaderScreen renders the open chapter as a vertical strip of pages.
type ReaderScreen struct {
	ctx          context.Context
	controller   *services.MangaController
	reader       *services.Reader
	proxy        *sources.ImageProxy
	session      *services.ReadingSession
	restoreDelay time.Duration

	viewport  viewport.Model
	spinner   spinner.Model
	picker    *components.ChapterPicker
	immersive bool

	// page resolution through the image proxy, cancelled on chapter change
	pages         map[int]pageStatus
	cancelResolve context.CancelFunc
	width     int
	height    int
}

func NewReaderScreen(ctx context.Context, controller *services.MangaController) *ReaderScreen {
	s := &ReaderScreen{
		ctx:          ctx,
		controller:   controller,
		reader:       controller.Reader(),
		proxy:        controller.Proxy(),
		restoreDelay: controller.RestoreDelay(),
		viewport:     viewport.New(80, 20),
		pages:        make(map[int]pageStatus),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Line)),
	}
	s.session = s.reader.Begin(ctx, controller.SaveInterval())
	return s
}

func (s *ReaderScreen) Init() tea.Cmd {
	return tea.Batch(s.load(), s.spinner.Tick)
}

func (s *ReaderScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.layout()
		return s, nil

	case chapterLoadedMsg:
		if errors.Is(msg.err, services.ErrStale) {
			return s, nil
		}
		s.render()
		s.viewport.GotoTop()
		if s.reader.State() != services.ReaderReady {
			return s, nil
		}
		resolve := s.resolvePages()
		target, ok := s.reader.RestoreTarget()
		if !ok {
			return s, resolve
		}
		gen := s.reader.Generation()
		return s, tea.Batch(resolve, tea.Tick(s.restoreDelay, func(time.Time) tea.Msg {
			return restoreScrollMsg{gen: gen, offset: target}
		}))

	case pageResolvedMsg:
		if msg.gen != s.reader.Generation() || errors.Is(msg.err, context.Canceled) {
			return s, nil
		}
		s.pages[msg.index] = pageStatus{src: msg.src, err: msg.err}
		offset := s.viewport.YOffset
		s.render()
		s.viewport.SetYOffset(offset)
		return s, nil

	case restoreScrollMsg:
		if msg.gen != s.reader.Generation() {
			return s, nil
		}
		s.viewport.SetYOffset(msg.offset)
		s.reader.MarkScrollRestored(msg.gen, s.viewport.YOffset)
		return s, nil

	case spinner.TickMsg:
		if s.reader.State() != services.ReaderLoading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s, s.handleKey(msg)

	case tea.MouseMsg:
		return s, s.scroll(msg)
	}

	return s, nil
}

func (s *ReaderScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.picker != nil {
		if msg.String() == "esc" && !s.picker.Filtering() {
			s.picker = nil
			return nil
		}
		picked, cmd := s.picker.Update(msg)
		if picked == nil {
			return cmd
		}
		s.picker = nil
		return s.switched(s.reader.Jump(picked.Hid, picked.Chap))
	}

	switch msg.String() {
	case "esc", "backspace", "q":
		return s.back()
	}

	if s.reader.State() == services.ReaderFailed {
		return nil
	}

	switch msg.String() {
	case "n", "right":
		return s.switched(s.reader.Next())
	case "p", "left":
		return s.switched(s.reader.Prev())
	case "c":
		session, _ := s.reader.Session()
		s.picker = components.NewChapterPicker(s.reader.SortedChapters(), session.Hid, s.width, s.height-2)
		return nil
	case "i":
		s.immersive = !s.immersive
		s.layout()
		return nil
	}
	return s.scroll(msg)
}

func (s *ReaderScreen) scroll(msg tea.Msg) tea.Cmd {
	if s.reader.State() != services.ReaderReady {
		return nil
	}
	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	s.reader.ReportScroll(s.viewport.YOffset)
	return cmd
}

func (s *ReaderScreen) switched(ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	s.stopResolving()
	s.viewport.SetContent("")
	s.viewport.GotoTop()
	return tea.Batch(s.load(), s.spinner.Tick)
}

func (s *ReaderScreen) back() tea.Cmd {
	s.stopResolving()
	s.session.End()
	s.reader.Close()
	return func() tea.Msg { return CloseReaderMsg{} }
}

// Suspend stops the periodic save but keeps the session for the next start.
func (s *ReaderScreen) Suspend() {
	s.stopResolving()
	s.session.End()
}

// resolvePages asks the proxy for every page of the loaded chapter. Results
// carry the generation they were started for.
func (s *ReaderScreen) resolvePages() tea.Cmd {
	s.stopResolving()
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelResolve = cancel

	gen := s.reader.Generation()
	images := s.reader.Images()
	cmds := make([]tea.Cmd, len(images))
	for i, img := range images {
		src := s.proxy.URL(img.URL)
		cmds[i] = func() tea.Msg {
			resolved, err := s.proxy.Resolve(ctx, src)
			return pageResolvedMsg{gen: gen, index: i, src: resolved, err: err}
		}
	}
	return tea.Batch(cmds...)
}

func (s *ReaderScreen) stopResolving() {
	if s.cancelResolve != nil {
		s.cancelResolve()
		s.cancelResolve = nil
	}
	s.pages = make(map[int]pageStatus)
}

func (s *ReaderScreen) layout() {
	chrome := 3
	if s.immersive {
		chrome = 0
	}
	s.viewport.Width = max(s.width, 1)
	s.viewport.Height = max(s.height-chrome, 1)
	if s.picker != nil {
		s.picker.SetSize(s.width, s.height-2)
	}
	offset := s.viewport.YOffset
	s.render()
	s.viewport.SetYOffset(offset)
}

// render lays out one placeholder block per page, sized by the page's aspect ratio.
func (s *ReaderScreen) render() {
	images := s.reader.Images()
	if len(images) == 0 {
		s.viewport.SetContent("")
		return
	}

	width := max(s.viewport.Width-2, 10)
	blocks := make([]string, len(images))
	for i, img := range images {
		rows := pageRows(img, width)
		label := fmt.Sprintf("Page %d/%d", i+1, len(images))
		if img.W > 0 && img.H > 0 {
			label += fmt.Sprintf("  %dx%d", img.W, img.H)
		}
		status := s.pageLine(i, img, width-4)
		blocks[i] = styles.PageStyle.
			Width(width - 2).
			Height(rows).
			Render(label + "\n" + status)
	}
	s.viewport.SetContent(strings.Join(blocks, "\n"))
}

type pageStatus struct {
	src string
	err error
}

func (s *ReaderScreen) pageLine(i int, img data.ChapterImage, width int) string {
	st, ok := s.pages[i]
	switch {
	case !ok:
		return styles.MutedStyle.Render(runewidth.Truncate("loading "+s.proxy.URL(img.URL), width, "…"))
	case st.err != nil:
		return styles.StatusError.Render("image unavailable")
	case st.src == "":
		return styles.MutedStyle.Render("no image")
	case strings.HasPrefix(st.src, "data:image"):
		return styles.StatusCompleted.Render(fmt.Sprintf("inline image (%d KB)", len(st.src)/1024))
	default:
		return styles.StatusCompleted.Render(runewidth.Truncate(st.src, width, "…"))
	}
}

// pageRows converts the page's aspect ratio to terminal rows, where a cell is
// about twice as tall as it is wide.
func pageRows(img data.ChapterImage, width int) int {
	if img.W <= 0 || img.H <= 0 {
		return minPageRows
	}
	rows := img.H * width / img.W / 2
	return min(max(rows, minPageRows), maxPageRows)
}

func (s *ReaderScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	if s.picker != nil {
		return s.picker.View() + "\n" + styles.HelpStyle.Render("enter: jump • /: filter • esc: close")
	}

	switch s.reader.State() {
	case services.ReaderFailed:
		msg := styles.FailedStyle.Render(wordwrap.String(failedMessage, max(s.width-6, 10)))
		return lipgloss.JoinVertical(lipgloss.Left, s.header(), "", msg, "", styles.HelpStyle.Render("esc: back"))
	case services.ReaderLoading, services.ReaderIdle:
		return lipgloss.JoinVertical(lipgloss.Left, s.header(), "", s.spinner.View()+" Loading chapter...")
	}

	if s.immersive {
		return s.viewport.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, s.header(), s.viewport.View(), s.footer())
}

func (s *ReaderScreen) header() string {
	session, _ := s.reader.Session()
	title := session.Slug
	if entry, err := s.controller.Library().Get(session.Slug); err == nil {
		title = components.DisplayTitle(entry.Manga)
	}
	text := fmt.Sprintf("%s • Ch. %s", title, session.Chapter)
	if n := len(s.reader.Images()); n > 0 {
		text += fmt.Sprintf(" • %d pages", n)
	}
	return styles.ReaderHeaderStyle.Width(max(s.width, 1)).Render(runewidth.Truncate(text, max(s.width-2, 1), "…"))
}

func (s *ReaderScreen) footer() string {
	prev := styles.HelpStyle.Render("p: prev")
	if !s.reader.CanPrev() {
		prev = styles.DisabledStyle.Render("p: prev")
	}
	next := styles.HelpStyle.Render("n: next")
	if !s.reader.CanNext() {
		next = styles.DisabledStyle.Render("n: next")
	}
	percent := fmt.Sprintf("%3.f%%", s.viewport.ScrollPercent()*100)
	help := styles.HelpStyle.Render("↑↓: scroll • c: chapters • i: immersive • esc: back")
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, " ", next, " ", help, " ", styles.MutedStyle.Render(percent))
}

// Commands
func (s *ReaderScreen) load() tea.Cmd {
	return func() tea.Msg {
		return chapterLoadedMsg{err: s.reader.Load(s.ctx)}
	}
}
