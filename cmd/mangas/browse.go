package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kerbaras/mangaread/pkg/services"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List the hot catalog listing",
	Long: "Display the browse cache, loading the first page when it is empty. " +
		"With --next the following page is loaded, exactly as scrolling to the end of the list does.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		next, _ := cmd.Flags().GetBool("next")
		return runBrowse(cmd.Context(), controller.Browse(), next, cmd.OutOrStdout())
	},
}

// runBrowse moves the browse cache through its own pagination rules and
// prints the cached list.
func runBrowse(ctx context.Context, cache *services.BrowseCache, next bool, w io.Writer) error {
	before := len(cache.Snapshot().Items)
	if next && before > 0 {
		cache.Advance(ctx)
	} else {
		cache.Mount(ctx)
	}
	state := cache.Snapshot()

	if len(state.Items) == 0 {
		fmt.Fprintln(w, "No results yet, the catalog may be warming up. Try again shortly.")
		return nil
	}

	var (
		purple = lipgloss.Color("99")

		headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
		cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			default:
				return cellStyle
			}
		}).
		Headers("#", "Title", "Slug", "Latest")

	for i, manga := range state.Items {
		t.Row(fmt.Sprintf("%d", i+1), truncateString(displayTitle(manga), 48), manga.Slug, chapterLabel(manga.LastChapter))
	}

	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "Page %d: %d titles cached, %d new\n", state.Page, len(state.Items), len(state.Items)-before)
	if !state.HasMore {
		fmt.Fprintln(w, "No more results")
	}
	return nil
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Forget the cached browse listing",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		controller.Browse().Clear()
		fmt.Println("🧹 Browse cache cleared")
	},
}

func init() {
	browseCmd.Flags().BoolP("next", "n", false, "load the next catalog page")
}
