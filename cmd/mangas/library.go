package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"list"},
	Short:   "List all manga in your library",
	Long:    "Display all manga in your library with their reading progress in a formatted table",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		entries := controller.Library().List()

		if len(entries) == 0 {
			fmt.Println("📚 No manga in library. Use 'mangaread browse' and 'mangaread add' to start one.")
			return
		}

		columns := []table.Column{
			{Title: "Title", Width: 40},
			{Title: "Slug", Width: 30},
			{Title: "Last Read", Width: 10},
			{Title: "Latest", Width: 10},
			{Title: "Visited", Width: 8},
		}

		rows := []table.Row{}
		for _, e := range entries {
			rows = append(rows, table.Row{
				truncateString(displayTitle(e.Manga), 38),
				truncateString(e.Slug, 28),
				e.LastReadChapter,
				chapterLabel(e.LastChapter),
				fmt.Sprintf("%d", controller.VisitedChapters(e.Slug)),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n📚 Library (%d manga)\n\n", len(entries))
		fmt.Println(t.View())
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [slug]",
	Short: "Remove a manga from your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controller.Library().Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑  Removed '%s' from library\n", args[0])
		return nil
	},
}
