// Package rowdiff turns parsed on-sale tables into per-row change events.
//
// It owns the three decisions that make the monitor quiet when nothing
// happened: how a row is identified across runs (identity.go), what is
// compared (record.go) and how a difference is shown (render.go).
package rowdiff

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// Field is one normalized column/value pair.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RowRecord is the persisted, comparable form of one table row.
//
// Fields keep column order so renders list them the way the page does, but
// equality ignores order (see Equal).
type RowRecord struct {
	Fields   []Field `json:"fields"`
	Opponent string  `json:"opponent,omitempty"`
}

// NormalizeKey turns a column header into a record key:
// lowercase, whitespace runs replaced by "_".
func NormalizeKey(column string) string {
	s := strings.ToLower(strings.TrimSpace(column))
	return reWhitespace.ReplaceAllString(s, "_")
}

// NormalizeValue NFC-normalizes v, collapses whitespace and trims it.
func NormalizeValue(v string) string {
	v = norm.NFC.String(v)
	return strings.TrimSpace(reWhitespace.ReplaceAllString(v, " "))
}

// NewRowRecord builds the record for one row. values[i] belongs to
// columns[i]; missing values are "".
//
// Blank headers become column_<n>; a header that normalizes to an existing
// key gets a numeric suffix so no value is silently dropped.
func NewRowRecord(columns, values []string, opponent string) RowRecord {
	rec := RowRecord{
		Fields:   make([]Field, 0, len(columns)),
		Opponent: NormalizeValue(opponent),
	}

	seen := make(map[string]int, len(columns))
	for i, col := range columns {
		key := NormalizeKey(col)
		if key == "" {
			key = "column_" + strconv.Itoa(i+1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = key + "_" + strconv.Itoa(n)
		}

		var v string
		if i < len(values) {
			v = values[i]
		}
		rec.Fields = append(rec.Fields, Field{Name: key, Value: NormalizeValue(v)})
	}
	return rec
}

// Map returns the fields as name -> value.
func (r RowRecord) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// Value returns the named field, or "".
func (r RowRecord) Value(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Equal reports whether r and o hold the same field map and opponent.
// Column order does not matter.
func (r RowRecord) Equal(o RowRecord) bool {
	if r.Opponent != o.Opponent {
		return false
	}
	am, bm := r.Map(), o.Map()
	if len(am) != len(bm) {
		return false
	}
	for k, v := range am {
		if bv, ok := bm[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Marshal returns the canonical serialized form. Identical records built from
// identical rows always serialize to identical bytes.
func (r RowRecord) Marshal() (string, error) {
	if r.Fields == nil {
		r.Fields = []Field{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal row record: %w", err)
	}
	return string(b), nil
}

// UnmarshalRowRecord parses a value produced by Marshal.
func UnmarshalRowRecord(s string) (RowRecord, error) {
	var r RowRecord
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return RowRecord{}, fmt.Errorf("unmarshal row record: %w", err)
	}
	return r, nil
}
