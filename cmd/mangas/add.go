package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [slug]",
	Short: "Add a manga to your library",
	Long:  "Add a manga from the browse cache to your library. Progress of an existing entry is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]

		manga, ok := controller.Browse().Find(slug)
		if !ok {
			return fmt.Errorf("'%s' is not in the browse cache, run 'mangaread browse' first", slug)
		}

		entry := controller.Library().Upsert(manga)
		fmt.Printf("✅ Added '%s' to library (reading chapter %s)\n", displayTitle(manga), entry.LastReadChapter)
		fmt.Printf("💡 To export the chapter, use: mangaread export %s\n", slug)
		return nil
	},
}
