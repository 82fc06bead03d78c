package postgres

import (
	"strings"
	"testing"
)

func TestBuildCreateSQL_Unqualified(t *testing.T) {
	t.Parallel()

	schemaSQL, tableSQL := buildCreateSQL("onsale_state")
	if schemaSQL != "" {
		t.Fatalf("expected no schema DDL for unqualified table, got %q", schemaSQL)
	}
	if !strings.HasPrefix(tableSQL, `CREATE TABLE IF NOT EXISTS "onsale_state" (`) {
		t.Fatalf("tableSQL missing CREATE TABLE: %q", tableSQL)
	}
	for _, want := range []string{`"key" TEXT PRIMARY KEY`, `"value" TEXT NOT NULL`, `"updated_at" TIMESTAMPTZ`} {
		if !strings.Contains(tableSQL, want) {
			t.Fatalf("tableSQL missing %q: %q", want, tableSQL)
		}
	}
}

func TestBuildCreateSQL_SchemaQualified(t *testing.T) {
	t.Parallel()

	schemaSQL, tableSQL := buildCreateSQL("bot.state")
	if schemaSQL != `CREATE SCHEMA IF NOT EXISTS "bot"` {
		t.Fatalf("unexpected schemaSQL: %q", schemaSQL)
	}
	if !strings.Contains(tableSQL, `"bot"."state"`) {
		t.Fatalf("tableSQL not schema-qualified: %q", tableSQL)
	}
}

func TestBuildPutSQL_UpsertsOnKey(t *testing.T) {
	t.Parallel()

	got := buildPutSQL("onsale_state")
	want := `INSERT INTO "onsale_state" ("key", "value", "updated_at") VALUES ($1, $2, now()) ` +
		`ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "updated_at" = EXCLUDED."updated_at"`
	if got != want {
		t.Fatalf("buildPutSQL:\n got=%s\nwant=%s", got, want)
	}
}

func TestBuildGetSQL(t *testing.T) {
	t.Parallel()

	if got := buildGetSQL("bot.state"); got != `SELECT "value" FROM "bot"."state" WHERE "key" = $1` {
		t.Fatalf("buildGetSQL: %q", got)
	}
}
