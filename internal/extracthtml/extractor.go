package extracthtml

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reSpaceRuns = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and folds every whitespace run into one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(reSpaceRuns.ReplaceAllString(s, " "))
}

// ExtractPayload finds the marker element in html and decodes its payload.
//
// The HTML parser already resolves entities in attribute values, so the
// attribute text is handed to encoding/json as-is.
//
// ok is false when the marker or attribute is missing, the JSON is invalid,
// or the payload has no body. None of these are errors: the page markup is
// owned by someone else and changes without notice.
func ExtractPayload(html string, opts ExtractOptions) (p Payload, ok bool) {
	opts = opts.withDefaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Payload{}, false
	}

	var raw string
	doc.Find(opts.ContainerSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, exists := s.Attr(opts.PropsAttr)
		if !exists {
			return true
		}
		raw = v
		return false
	})
	if strings.TrimSpace(raw) == "" {
		return Payload{}, false
	}

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, false
	}
	if strings.TrimSpace(p.Body) == "" {
		return Payload{}, false
	}
	return p, true
}

// ExtractTables returns every heading + table pairing embedded in html, in
// document order.
//
// Pairing rules:
//   - a table takes the nearest preceding heading that no earlier table took;
//   - a table with no such heading is skipped;
//   - tables nested in other tables are part of their parent's markup and are
//     not reported on their own.
//
// Sections with identical headers are kept as separate entries.
func ExtractTables(html string, opts ExtractOptions) []TableSection {
	opts = opts.withDefaults()

	p, ok := ExtractPayload(html, opts)
	if !ok {
		return nil
	}
	return tablesFromBody(p.Body, opts)
}

func tablesFromBody(body string, opts ExtractOptions) []TableSection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var (
		out     []TableSection
		pending *string
	)

	doc.Find(opts.HeadingSelector + ", table").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "table" {
			h := CollapseSpace(s.Text())
			pending = &h
			return
		}
		if s.ParentsFiltered("table").Length() > 0 {
			return
		}
		if pending == nil {
			return
		}

		markup, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		out = append(out, TableSection{Header: *pending, Markup: markup})
		pending = nil
	})

	return out
}

// ParseTable converts one table's markup into columns and rows.
//
// Columns come from the <th> cells of the first row. Each later row yields one
// value per column: the trimmed text of the cell's <p>, or "" when the cell
// has no <p> or does not exist.
//
// Fewer than two rows, or a first row without <th> cells, yields a table with
// no rows. Nothing here returns an error.
func ParseTable(markup string) ParsedTable {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ParsedTable{}
	}

	trs := doc.Find("tr")
	if trs.Length() < 2 {
		return ParsedTable{}
	}

	var cols []string
	trs.First().Find("th").Each(func(_ int, th *goquery.Selection) {
		cols = append(cols, CollapseSpace(th.Text()))
	})
	if len(cols) == 0 {
		return ParsedTable{}
	}

	pt := ParsedTable{Columns: cols}
	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		row := make([]string, len(cols))
		tr.Find("td").EachWithBreak(func(i int, td *goquery.Selection) bool {
			if i >= len(cols) {
				return false
			}
			row[i] = cellText(td)
			return true
		})
		pt.Rows = append(pt.Rows, row)
	})

	return pt
}

func cellText(td *goquery.Selection) string {
	p := td.Find("p").First()
	if p.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(p.Text())
}
