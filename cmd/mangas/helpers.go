package cmd

import (
	"github.com/mattn/go-runewidth"

	"github.com/kerbaras/mangaread/pkg/data"
)

func truncateString(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func displayTitle(m data.Manga) string {
	if m.DisplayTitle != "" {
		return m.DisplayTitle
	}
	return m.Slug
}

func chapterLabel(c *data.ChapterNumber) string {
	if c == nil || c.Value == "" {
		return "?"
	}
	return c.Value
}
