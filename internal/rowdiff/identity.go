package rowdiff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
)

var (
	reOpponentColumn    = regexp.MustCompile(`(?i)opponent|opposition|fixture|match`)
	reDateColumn        = regexp.MustCompile(`(?i)date`)
	reCompetitionColumn = regexp.MustCompile(`(?i)competition|tournament`)

	// "Chelsea v Arsenal", "Chelsea vs. Arsenal" -> "Arsenal".
	reVersus = regexp.MustCompile(`(?i)\bvs?\.?\s+(.+)$`)

	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// ResolveOpponent names the other side of the fixture in a row.
//
// A non-empty value in an opponent-like column wins. Otherwise the first two
// cells are joined and the text after a "v"/"vs" token is used, or the joined
// text itself when there is no such token.
func ResolveOpponent(columns, fields []string) string {
	if i := columnIndex(columns, reOpponentColumn); i >= 0 && i < len(fields) {
		if v := strings.TrimSpace(fields[i]); v != "" {
			return v
		}
	}

	var parts []string
	for i := 0; i < 2 && i < len(fields); i++ {
		parts = append(parts, fields[i])
	}
	joined := strings.Join(parts, " ")

	if m := reVersus.FindStringSubmatch(joined); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(joined)
}

// DeriveIdentity returns the storage identity of one row.
//
// The key is built from the table header and the row's date, opponent and
// competition, so it survives the page reordering or inserting rows. Only
// when date, opponent and competition all normalize to "" does it fall back
// to the row index.
func DeriveIdentity(header string, columns, fields []string, rowIndex int) string {
	date := normalizePiece(fieldFor(columns, fields, reDateColumn))
	opponent := normalizePiece(ResolveOpponent(columns, fields))
	competition := normalizePiece(fieldFor(columns, fields, reCompetitionColumn))

	if date == "" && opponent == "" && competition == "" {
		return reWhitespace.ReplaceAllString(strings.TrimSpace(header), "_") + "_row_" + strconv.Itoa(rowIndex)
	}

	var pieces []string
	for _, p := range []string{normalizePiece(header), date, opponent, competition} {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return strings.Join(pieces, "_")
}

// Identities derives one identity per row of table.
//
// Rows that derive the same identity inside one table (the page listing the
// same fixture twice) get "__2", "__3", ... in row order so neither overwrites
// the other's state.
func Identities(header string, table extracthtml.ParsedTable) []string {
	out := make([]string, len(table.Rows))
	seen := make(map[string]int, len(table.Rows))
	for i, row := range table.Rows {
		id := DeriveIdentity(header, table.Columns, row, i)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = id + "__" + strconv.Itoa(n)
		}
		out[i] = id
	}
	return out
}

func normalizePiece(s string) string {
	s = strings.ToLower(s)
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = reNonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func columnIndex(columns []string, re *regexp.Regexp) int {
	for i, c := range columns {
		if re.MatchString(c) {
			return i
		}
	}
	return -1
}

func fieldFor(columns, fields []string, re *regexp.Regexp) string {
	i := columnIndex(columns, re)
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
