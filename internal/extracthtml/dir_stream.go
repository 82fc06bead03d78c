package extracthtml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// SnapshotTable is one table found in a saved page, as emitted by
// StreamFromDir.
type SnapshotTable struct {
	SourceFile string     `json:"source_file"`
	Header     string     `json:"header"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
}

// StreamFromDir writes a single JSON array to w with one object per table
// found in each saved page under dir.
//
//   - files are visited in filename order
//   - unreadable files and pages without the payload are skipped
//   - subdirectories are not descended into
//
// It is how extraction changes are checked against a collection of past
// snapshots of the page.
func StreamFromDir(w io.Writer, dir string, opts ExtractOptions) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("write [: %w", err)
	}

	first := true
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}

		for _, sec := range ExtractTables(string(b), opts) {
			pt := ParseTable(sec.Markup)
			rec := SnapshotTable{
				SourceFile: e.Name(),
				Header:     sec.Header,
				Columns:    pt.Columns,
				Rows:       pt.Rows,
			}
			if rec.Columns == nil {
				rec.Columns = []string{}
			}
			if rec.Rows == nil {
				rec.Rows = [][]string{}
			}

			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return fmt.Errorf("write comma: %w", err)
				}
			}
			first = false
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode %s: %w", e.Name(), err)
			}
		}
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("write ]: %w", err)
	}
	return nil
}
