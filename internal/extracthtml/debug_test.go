package extracthtml

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugPrintTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := DebugPrintTables(&buf, []TableSection{{Header: "Stamford Bridge Fixtures", Markup: homeTable}})
	if err != nil {
		t.Fatalf("DebugPrintTables: %v", err)
	}

	out := buf.String()
	// go-pretty upper-cases header cells by default.
	for _, want := range []string{"[0] Stamford Bridge Fixtures (1 rows)", "OPPONENT", "Arsenal", "15:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDebugPrintTables_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := DebugPrintTables(&buf, nil); err != nil {
		t.Fatalf("DebugPrintTables: %v", err)
	}
	if buf.String() != "no tables found\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
