package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/services"
)

var exportCmd = &cobra.Command{
	Use:   "export [slug]",
	Short: "Export a chapter as an EPUB",
	Long:  "Export a chapter of a library or browse-cache manga as an EPUB. Defaults to the last read chapter.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		chapter, _ := cmd.Flags().GetString("chapter")
		hid, _ := cmd.Flags().GetString("hid")

		manga, defHid, defChapter, err := lookup(slug)
		if err != nil {
			return err
		}
		if hid == "" {
			hid, chapter = defHid, defChapter
		}
		if chapter == "" {
			return fmt.Errorf("--chapter is required together with --hid")
		}

		exporter := controller.Exporter()
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)

		// Listen for progress
		go func() {
			defer wg.Done()
			for {
				select {
				case progress := <-exporter.Progress():
					if progress.Status == services.ExportDownloading && progress.TotalPages > 0 {
						fmt.Printf("  Chapter %s: %d/%d pages\n", progress.Chapter, progress.CurrentPage, progress.TotalPages)
					}
				case <-done:
					return
				}
			}
		}()

		fmt.Printf("📥 Exporting %s chapter %s\n", displayTitle(manga), chapter)
		path, err := exporter.ExportChapter(cmd.Context(), manga, hid, chapter)
		close(done)
		wg.Wait()
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("📖 EPUB created: %s\n", path)
		return nil
	},
}

// lookup prefers the library entry, whose progress names the default chapter.
func lookup(slug string) (data.Manga, string, string, error) {
	entry, err := controller.Library().Get(slug)
	if err == nil {
		return entry.Manga, entry.LastReadHid, entry.LastReadChapter, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return data.Manga{}, "", "", err
	}
	manga, ok := controller.Browse().Find(slug)
	if !ok {
		return data.Manga{}, "", "", fmt.Errorf("'%s' is neither in the library nor in the browse cache", slug)
	}
	chapter := "1"
	if manga.LastChapter != nil && manga.LastChapter.Value != "" {
		chapter = manga.LastChapter.Value
	}
	return manga, manga.LatestChapterHid, chapter, nil
}

func init() {
	exportCmd.Flags().String("hid", "", "chapter identifier (defaults to the last read chapter)")
	exportCmd.Flags().StringP("chapter", "c", "", "chapter label that goes with --hid")
}
