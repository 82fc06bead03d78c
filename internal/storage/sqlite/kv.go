package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

// KV implements storage.KV on a single SQLite table.
//
// SQLite has no native timestamp type, so updated_at is stored as an
// RFC3339Nano string for reliable round-trips and easy debugging.
type KV struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func init() {
	storage.Register("sqlite", New)
}

// New opens cfg.DSN and creates the state table if it is missing.
//
// The pool is limited to one connection: ":memory:" databases are private to
// a connection, and the monitor writes from one goroutine anyway.
func New(ctx context.Context, cfg storage.Config) (storage.KV, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	kv := &KV{db: db, table: cfg.TableName(), now: time.Now}
	if _, err := db.ExecContext(ctx, buildCreateSQL(kv.table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", kv.table, err)
	}
	return kv, nil
}

func (k *KV) Close() { _ = k.db.Close() }

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := k.db.QueryRowContext(ctx, buildGetSQL(k.table), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *KV) Put(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, buildPutSQL(k.table), key, value, formatSQLiteTime(k.now()))
	return err
}

func buildCreateSQL(table string) string {
	return fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s TEXT NOT NULL)`,
		tableIdent(table), sqlIdent("key"), sqlIdent("value"), sqlIdent("updated_at"),
	)
}

func buildGetSQL(table string) string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, sqlIdent("value"), tableIdent(table), sqlIdent("key"))
}

func buildPutSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?) ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s`,
		tableIdent(table), sqlIdent("key"), sqlIdent("value"), sqlIdent("updated_at"),
		sqlIdent("key"),
		sqlIdent("value"), sqlIdent("value"),
		sqlIdent("updated_at"), sqlIdent("updated_at"),
	)
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// tableIdent quotes each part of a possibly schema-qualified name.
func tableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = sqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
