package ui

import (
	"fmt"

	"github.com/bnema/vmshm/internal/keymap"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// DisplayRow describes one bridged display for DisplayTable
type DisplayRow struct {
	Index   int
	Width   int
	Height  int
	Mode    string
	Primary bool
	Mapped  bool
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle))
}

// cellStyle highlights the header row and the first column
func cellStyle(row, col int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)
	case col == 0:
		return lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true).
			Padding(0, 1)
	default:
		return lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)
	}
}

// KeymapTable renders the key symbol translation table
func KeymapTable(entries []keymap.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Sym),
			e.Code.String(),
			fmt.Sprintf("%d", e.Code),
		})
	}

	t := newTable().
		StyleFunc(cellStyle).
		Headers("SYM", "GUEST KEY", "CODE").
		Rows(rows...)
	return t.String()
}

// DisplayTable renders the bridged displays
func DisplayTable(displays []DisplayRow) string {
	rows := make([][]string, 0, len(displays))
	for _, d := range displays {
		segment := "sub"
		if d.Primary {
			segment = "primary"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", d.Index),
			fmt.Sprintf("%dx%d", d.Width, d.Height),
			d.Mode,
			segment,
			FormatStatus(d.Mapped, ""),
		})
	}

	t := newTable().
		StyleFunc(cellStyle).
		Headers("DISPLAY", "SIZE", "BLIT", "SEGMENT", "").
		Rows(rows...)
	return t.String()
}
