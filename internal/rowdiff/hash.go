package rowdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
)

// HashParts returns a lowercase hex SHA-256 over the named parts.
//
// Every name and value is written with its byte length in front, so distinct
// part lists never encode to the same input, whatever bytes they contain.
func HashParts(parts ...[2]string) string {
	h := sha256.New()
	for _, p := range parts {
		writeField(h, p[0])
		writeField(h, p[1])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	_, _ = io.WriteString(w, strconv.Itoa(len(s))+":"+s)
}

// HashTable is the table-level content hash. It covers the raw markup, so
// whitespace-only edits on the page change it.
func HashTable(header, markup string) string {
	return HashParts([2]string{"header", header}, [2]string{"markup", markup})
}
