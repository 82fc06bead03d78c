package rowdiff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashParts(t *testing.T) {
	t.Parallel()

	a := HashParts([2]string{"a", "bc"})
	require.Len(t, a, 64)
	require.Equal(t, a, HashParts([2]string{"a", "bc"}))
	require.NotEqual(t, a, HashParts([2]string{"ab", "c"}))
	require.NotEqual(t,
		HashParts([2]string{"x", "1"}, [2]string{"y", "2"}),
		HashParts([2]string{"y", "2"}, [2]string{"x", "1"}))

	// Delimiter bytes inside names or values stay unambiguous.
	require.NotEqual(t, HashParts([2]string{"a", "b=c"}), HashParts([2]string{"a=b", "c"}))
	require.NotEqual(t,
		HashParts([2]string{"a", "x\x1fb=y"}),
		HashParts([2]string{"a", "x"}, [2]string{"b", "y"}))
	require.NotEqual(t, HashParts([2]string{"", "1:x"}), HashParts([2]string{"1:x", ""}))
}

func TestHashTable(t *testing.T) {
	t.Parallel()

	h := HashTable("Home", "<table><tr><th>A</th></tr></table>")
	require.Equal(t, h, HashTable("Home", "<table><tr><th>A</th></tr></table>"))
	require.NotEqual(t, h, HashTable("Away", "<table><tr><th>A</th></tr></table>"))
	require.NotEqual(t, h, HashTable("Home", "<table> <tr><th>A</th></tr></table>"))
}
