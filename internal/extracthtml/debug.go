package extracthtml

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// DebugPrintTables renders every extracted section as a text table.
// This backs the "extract" command.
func DebugPrintTables(w io.Writer, sections []TableSection) error {
	if len(sections) == 0 {
		_, err := fmt.Fprintln(w, "no tables found")
		return err
	}

	for i, s := range sections {
		pt := ParseTable(s.Markup)

		if _, err := fmt.Fprintf(w, "[%d] %s (%d rows)\n", i, s.Header, len(pt.Rows)); err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(w)

		header := make(table.Row, 0, len(pt.Columns))
		for _, c := range pt.Columns {
			header = append(header, c)
		}
		tw.AppendHeader(header)

		for _, r := range pt.Rows {
			row := make(table.Row, 0, len(r))
			for _, v := range r {
				row = append(row, v)
			}
			tw.AppendRow(row)
		}
		tw.Render()

		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
