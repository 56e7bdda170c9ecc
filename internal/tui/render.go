package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/view"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cursorStyle = headerStyle.Reverse(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	activeStyle = cellStyle.Foreground(lipgloss.Color("12"))
)

const helpText = "←/→ column  enter/s sort  / search  g gender  [/] min age  c clear  ↑/↓ scroll  q quit"

/* ----------------------------------------
	VIEW
---------------------------------------- */

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Roster"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(Summary(m.state)))
	b.WriteString("\n")
	b.WriteString(m.filterLine())
	b.WriteString("\n")

	if m.state.Loaded() {
		b.WriteString(m.table())
	} else {
		b.WriteString(dimStyle.Render("No save loaded."))
	}
	b.WriteString("\n")

	switch {
	case m.err != "":
		b.WriteString(errStyle.Render(m.err))
	case m.status != "":
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(helpText))
	return b.String()
}

func (m Model) table() string {
	cfg := m.state.Config
	headers := make([]string, len(m.columns))
	for i, c := range m.columns {
		headers[i] = HeaderLabel(c, cfg)
	}

	rows := m.state.Rows
	end := m.offset + m.pageSize()
	if end > len(rows) {
		end = len(rows)
	}
	start := m.offset
	if start > end {
		start = end
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderHeader(true).
		BorderRow(false).
		Headers(headers...).
		Rows(Rows(rows[start:end])...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if col == m.cursor {
					return cursorStyle
				}
				return headerStyle
			}
			if cfg.Sorted() && m.columns[col].Name == cfg.SortKey {
				return activeStyle
			}
			return cellStyle
		})
	return t.Render()
}

func (m Model) filterLine() string {
	if m.mode == modeSearch {
		return "Search: " + m.search + "█"
	}
	f := m.state.Config.Filters
	if !f.Active() {
		return dimStyle.Render("No filters")
	}
	return "Filters: " + DescribeFilters(f)
}

/* ----------------------------------------
	SHARED RENDERING
---------------------------------------- */

// HeaderLabel is a column label with the sort glyph when it is the active
// sort column.
func HeaderLabel(c roster.ColumnSpec, cfg view.Config) string {
	if cfg.Sorted() && cfg.SortKey == c.Name {
		return c.Label + " " + cfg.Direction.Glyph()
	}
	return c.Label
}

// Rows returns the display text of each record.
func Rows(records []roster.Record) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = r.Row()
	}
	return out
}

// Table renders a view as a plain bordered table. The CLI prints it.
func Table(state core.ViewState) string {
	headers := make([]string, len(state.Columns))
	for i, c := range state.Columns {
		headers[i] = HeaderLabel(c, state.Config)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(Rows(state.Rows)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

// Summary is the one-line count of a view.
func Summary(state core.ViewState) string {
	if !state.Loaded() {
		return "0 records"
	}
	s := fmt.Sprintf("%d of %d records from %s (year %d)",
		len(state.Rows), state.MasterTotal, state.Load.FileName, state.Load.CurrentYear)
	if state.Config.Sorted() {
		s += fmt.Sprintf(", sorted by %s %s", state.Config.SortKey, state.Config.Direction)
	}
	return s
}

// DescribeFilters lists the active filter controls.
func DescribeFilters(f view.Filters) string {
	var parts []string
	if f.FreeText != "" {
		parts = append(parts, fmt.Sprintf("text %q", f.FreeText))
	}
	if f.Gender != "" {
		parts = append(parts, "gender "+f.Gender)
	}
	if f.MinAge != nil {
		parts = append(parts, fmt.Sprintf("age ≥ %d", *f.MinAge))
	}
	if f.MaxAge != nil {
		parts = append(parts, fmt.Sprintf("age ≤ %d", *f.MaxAge))
	}
	if f.LikedSubstring != "" {
		parts = append(parts, fmt.Sprintf("likes %q", f.LikedSubstring))
	}
	return strings.Join(parts, ", ")
}

func loadStatus(s *core.LoadSummary) string {
	if s == nil {
		return ""
	}
	msg := fmt.Sprintf("Loaded %d records from %s", s.Records, s.FileName)
	if n := len(s.Issues); n > 0 {
		msg += fmt.Sprintf(" (%d issues)", n)
	}
	return msg
}
