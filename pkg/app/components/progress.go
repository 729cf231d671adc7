package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/services"
)

// ProgressTracker renders the chapter exports in flight and the last result.
type ProgressTracker struct {
	exports map[string]*services.ExportProgress
	last    *services.ExportProgress
	width   int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		exports: make(map[string]*services.ExportProgress),
		width:   width,
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) Update(progress services.ExportProgress) {
	key := progress.Slug + ":" + progress.Hid
	prog := progress
	switch progress.Status {
	case services.ExportComplete, services.ExportError:
		delete(p.exports, key)
		p.last = &prog
	default:
		p.exports[key] = &prog
	}
}

func (p *ProgressTracker) Clear() {
	p.exports = make(map[string]*services.ExportProgress)
	p.last = nil
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.exports) > 0
}

func (p *ProgressTracker) View() string {
	if len(p.exports) == 0 && p.last == nil {
		return ""
	}

	var b strings.Builder
	if len(p.exports) > 0 {
		b.WriteString(styles.TitleStyle.Render("Exports"))
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(p.exports))
	for k := range p.exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		progress := p.exports[k]
		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("%s • Chapter %s", progress.Slug, progress.Chapter)))
		b.WriteString("\n")

		statusText := progress.Status
		if progress.TotalPages > 0 {
			percentage := float64(progress.CurrentPage) / float64(progress.TotalPages) * 100
			statusText = fmt.Sprintf("%s (%d/%d pages - %.0f%%)",
				progress.Status, progress.CurrentPage, progress.TotalPages, percentage)

			b.WriteString(renderProgressBar(progress.CurrentPage, progress.TotalPages, p.width-4))
			b.WriteString("\n")
		}
		b.WriteString(styles.StatusStyle(progress.Status).Render(statusText))
		b.WriteString("\n")
	}

	if p.last != nil {
		switch p.last.Status {
		case services.ExportError:
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Export of chapter %s failed: %s", p.last.Chapter, p.last.Error)))
		default:
			b.WriteString(styles.StatusCompleted.Render("Saved " + p.last.Path))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
