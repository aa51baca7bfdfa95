// Package cli renders forecasts for the terminal and loads rule seed files.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorBorder = lipgloss.Color("#3A3A3A")
	ColorText   = lipgloss.Color("#EDEDED")
	ColorMuted  = lipgloss.Color("#8A8A8A")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	cellStyle   = lipgloss.NewStyle().Foreground(ColorText)
	borderStyle = lipgloss.NewStyle().Foreground(ColorBorder)
	labelStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	goodStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	badStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// Table is a bordered text table. The first column is left-aligned, the
// rest are right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Stat is one labelled figure in a stat block.
type Stat struct {
	Label    string
	Value    string
	Negative bool
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(50).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderStats renders label/value pairs, negative values in red.
func RenderStats(stats []Stat) string {
	width := 0
	for _, s := range stats {
		width = max(width, len(s.Label))
	}

	var b strings.Builder
	for _, s := range stats {
		style := goodStyle
		if s.Negative {
			style = badStyle
		}
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, s.Label)))
		b.WriteString("  ")
		b.WriteString(style.Render(s.Value))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 && len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, cols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return borderStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(borderStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			format := " %*s "
			if i == 0 {
				format = " %-*s "
			}
			b.WriteString(style.Render(fmt.Sprintf(format, widths[i], cell)))
			b.WriteString(borderStyle.Render("│"))
		}
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		b.WriteString(line(row, cellStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}
