package commands

import (
	"fmt"
	"os"
	"time"

	tbl "toplogger-backend/lib/table"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// renderTable prints the selected columns of a data table, in order.
// Absent cells render empty.
func renderTable(t *tbl.Table, cols []string) {
	w := newTable()

	header := table.Row{}
	for _, c := range cols {
		header = append(header, c)
	}
	w.AppendHeader(header)

	for i := 0; i < t.Len(); i++ {
		row := table.Row{}
		for _, c := range cols {
			v, ok := t.Value(i, c)
			if !ok || v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, renderCell(v))
		}
		w.AppendRow(row)
	}
	w.Render()
}

func renderCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
