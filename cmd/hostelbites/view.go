package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#F4A261")
	success = lipgloss.Color("#2A9D8F")
	danger  = lipgloss.Color("#E63946")
	muted   = lipgloss.Color("#8D99AE")
)

type styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Muted  lipgloss.Style
	OK     lipgloss.Style
	Error  lipgloss.Style
	Box    lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Padding(0, 1),
		Muted:  lipgloss.NewStyle().Foreground(muted),
		OK:     lipgloss.NewStyle().Foreground(success),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(danger),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
	}
}

// table renders static rows with columns sized to their widest cell.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(st styles) string {
	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(st.Title.Render(t.title))
		sb.WriteByte('\n')
	}
	if len(t.rows) == 0 {
		sb.WriteString(st.Muted.Render("(none)"))
		sb.WriteByte('\n')
		return sb.String()
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	sep := st.Muted.Render("│")
	for i, h := range t.headers {
		sb.WriteString(st.Header.Width(widths[i] + 2).Render(h))
		if i < len(t.headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteByte('\n')
	for i, w := range widths {
		sb.WriteString(st.Muted.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			sb.WriteString(st.Muted.Render("┼"))
		}
	}
	sb.WriteByte('\n')
	for _, row := range t.rows {
		for i := range t.headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(st.Cell.Width(widths[i] + 2).Render(cell))
			if i < len(t.headers)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func money(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func writeln(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s)
}
