package rowdiff

import (
	"context"
	"fmt"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
)

// Kind classifies a detected change.
type Kind int

const (
	KindNew Kind = iota + 1
	KindChanged
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Change is one row whose current record differs from what was stored.
//
// Serialized is the value the caller must persist under Identity once the
// change has been handled.
type Change struct {
	Identity   string
	Row        int
	Kind       Kind
	Previous   *RowRecord
	Current    RowRecord
	Serialized string
}

// PriorLookup returns the stored serialized record for identity.
// ok is false when nothing was stored yet.
type PriorLookup func(ctx context.Context, identity string) (serialized string, ok bool, err error)

// Detect compares every row of table with its stored record and returns the
// new and changed rows in row order.
//
// Rows equal to their stored record are omitted, so callers that persist
// exactly the returned changes never rewrite unchanged state. A stored value
// that no longer decodes is treated as absent: the row is reported as new and
// its state is repaired by the caller's write.
//
// namespace prefixes every identity. Callers pass a key unique per table on
// the page so tables sharing a header never share row state.
//
// Lookup errors abort detection.
func Detect(ctx context.Context, namespace string, table extracthtml.ParsedTable, prior PriorLookup) ([]Change, error) {
	ids := Identities(namespace, table)

	var out []Change
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := NewRowRecord(table.Columns, row, ResolveOpponent(table.Columns, row))

		raw, ok, err := prior(ctx, ids[i])
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", ids[i], err)
		}

		ch := Change{Identity: ids[i], Row: i, Current: cur}
		if ok {
			if prev, err := UnmarshalRowRecord(raw); err == nil {
				if prev.Equal(cur) {
					continue
				}
				ch.Kind = KindChanged
				ch.Previous = &prev
			}
		}
		if ch.Kind == 0 {
			ch.Kind = KindNew
		}

		ch.Serialized, err = cur.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}
