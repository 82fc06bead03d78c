package storage

import "strings"

const (
	tableHashPrefix = "table_hash:"
	rowPrefix       = "row:"
)

// TableHashKey is the key the content hash of the table under header is
// stored at.
func TableHashKey(header string) string {
	return tableHashPrefix + normalizeKey(header)
}

// RowKey is the key the serialized record of a row identity is stored at.
func RowKey(identity string) string {
	return rowPrefix + normalizeKey(identity)
}

// normalizeKey keeps keys stable across cosmetic whitespace differences.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
