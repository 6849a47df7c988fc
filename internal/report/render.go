package report

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"rbkoracle/internal/tui"
)

// Formats accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Table renders rows as a bordered table. Styling is applied only when
// color is true so files and pipes get plain text.
func Table(rows []Row, color bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Headers...)
	for _, r := range rows {
		t.Row(r.Cells()...)
	}
	if color {
		t.BorderStyle(tui.BorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tui.HeaderStyle
				}
				return tui.CellStyle
			})
	} else {
		t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	return t.String()
}

// Render writes rows to w in format.
func Render(w io.Writer, rows []Row, format string, color bool) error {
	if format == FormatJSON {
		if rows == nil {
			rows = []Row{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	_, err := io.WriteString(w, Table(rows, color)+"\n")
	return err
}
