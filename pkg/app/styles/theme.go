package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Surface    = lipgloss.Color("#37474F")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
	ThickBorder   = lipgloss.ThickBorder()
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// Manga cards
	CardStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Secondary).
			Padding(0, 2)

	ActiveCardStyle = lipgloss.NewStyle().
			Border(ThickBorder).
			BorderForeground(Primary).
			Padding(0, 2)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	// Export status
	StatusDownloading = lipgloss.NewStyle().
				Foreground(Info).
				Bold(true)

	StatusCompleted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	ProgressBarStyle = lipgloss.NewStyle().
				Foreground(Primary)

	// Navigation
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Background(Surface).
			Padding(0, 2).
			Bold(true)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Padding(0, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)

	// Reader
	ReaderHeaderStyle = lipgloss.NewStyle().
				Foreground(Foreground).
				Background(Surface).
				Padding(0, 1).
				Bold(true)

	PageStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Muted).
			Foreground(Muted).
			Align(lipgloss.Center, lipgloss.Center)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Strikethrough(true)

	FailedStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true).
			Padding(1, 2)
)

func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "downloading", "processing":
		return StatusDownloading
	case "complete":
		return StatusCompleted
	case "error":
		return StatusError
	default:
		return MutedStyle
	}
}
