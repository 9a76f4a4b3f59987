package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianshen/repowiki/internal/wiki"
)

var (
	// SuccessStyle marks completed runs.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#66BB6A"}).
			Bold(true)
	// WarningStyle marks page failures and degraded results.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC8800", Dark: "#FFAA00"})
	// MutedStyle is used for secondary detail.
	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"})
)

// ProgressLine renders one line describing a generation run.
type ProgressLine struct {
	width int
	count lipgloss.Style
	style lipgloss.Style
}

// NewProgressLine creates a ProgressLine truncated to width columns;
// width <= 0 disables truncation.
func NewProgressLine(width int) *ProgressLine {
	return &ProgressLine{
		width: width,
		count: lipgloss.NewStyle().Bold(true),
		style: MutedStyle,
	}
}

// View renders p, e.g. "Pages 2/5  Processing: Overview, Setup and 1 more".
func (l *ProgressLine) View(p wiki.Progress) string {
	if p.Total == 0 {
		return l.style.Render("Determining wiki structure...")
	}
	text := l.Text(p)
	if l.width > 0 && lipgloss.Width(text) > l.width {
		text = truncate(text, l.width)
	}
	head, rest, _ := strings.Cut(text, "  ")
	if rest == "" {
		return l.count.Render(head)
	}
	return l.count.Render(head) + "  " + l.style.Render(rest)
}

// Text is the unstyled form of View.
func (l *ProgressLine) Text(p wiki.Progress) string {
	if p.Total == 0 {
		return "Determining wiki structure..."
	}
	text := fmt.Sprintf("Pages %d/%d", p.Completed, p.Total)
	if len(p.Processing) > 0 {
		text += "  Processing: " + strings.Join(p.Processing, ", ")
		if p.Overflow > 0 {
			text += fmt.Sprintf(" and %d more", p.Overflow)
		}
	}
	return text
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return string(r[:min(len(r), width)])
	}
	return string(r[:width-1]) + "…"
}
