package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#3B5BDB", Dark: "#748FFC"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#868E96", Dark: "#909296"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#C92A2A", Dark: "#FF6B6B"}
	successColor = lipgloss.AdaptiveColor{Light: "#2B8A3E", Dark: "#69DB7C"}

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	totalStyle    = lipgloss.NewStyle().Bold(true)

	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Underline(true).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// row lays out cells left-aligned in fixed-width columns.
func row(widths []int, cells ...string) string {
	var b strings.Builder
	b.WriteString("  ")
	for i, cell := range cells {
		w := widths[i]
		cell = truncate(cell, w)
		b.WriteString(cell)
		if pad := w - lipgloss.Width(cell); pad > 0 && i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if i < len(cells)-1 {
			b.WriteString("  ")
		}
	}
	return b.String()
}

func tabs(labels []string, active int) string {
	rendered := make([]string, 0, len(labels))
	for i, label := range labels {
		if i == active {
			rendered = append(rendered, activeTabStyle.Render(label))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
