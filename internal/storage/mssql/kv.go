package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

// KV implements storage.KV for Microsoft SQL Server.
//
// Keys are NVARCHAR(450), the widest type SQL Server accepts in a clustered
// primary key. Put is a single MERGE ... WITH (HOLDLOCK) so two writers for
// the same key serialize instead of racing on the insert branch.
type KV struct {
	db    dbConn
	table string
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN with the "sqlserver" driver, checks connectivity and
// ensures the state table exists.
func New(ctx context.Context, cfg storage.Config) (storage.KV, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	kv := &KV{db: &sqlDB{db: raw}, table: cfg.TableName()}
	if err := kv.ensureTable(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return kv, nil
}

func (k *KV) ensureTable(ctx context.Context) error {
	schemaSQL, tableSQL := buildCreateSQL(k.table)
	if schemaSQL != "" {
		if _, err := k.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("mssql: create schema for %s: %w", k.table, err)
		}
	}
	if _, err := k.db.ExecContext(ctx, tableSQL); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", k.table, err)
	}
	return nil
}

// Close releases database resources held by this KV.
func (k *KV) Close() {
	if k == nil || k.db == nil {
		return
	}
	_ = k.db.Close()
}

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
	_, err := k.db.ExecContext(ctx, buildPutSQL(k.table), key, value)
	return err
}

// buildCreateSQL returns idempotent DDL for table. SQL Server has no
// CREATE ... IF NOT EXISTS, so both statements are guarded by catalog lookups.
func buildCreateSQL(table string) (schemaSQL, tableSQL string) {
	if i := strings.IndexByte(table, '.'); i > 0 {
		schema := table[:i]
		schemaSQL = fmt.Sprintf(
			"IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s')",
			sqlString(schema), sqlString(mssqlIdent(schema)),
		)
	}
	tableSQL = fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s NVARCHAR(450) NOT NULL PRIMARY KEY, %s NVARCHAR(MAX) NOT NULL, %s DATETIME2 NOT NULL)",
		sqlString(table), mssqlTableIdent(table),
		mssqlIdent("key"), mssqlIdent("value"), mssqlIdent("updated_at"),
	)
	return schemaSQL, tableSQL
}

func buildGetSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = @p1", mssqlIdent("value"), mssqlTableIdent(table), mssqlIdent("key"))
}

func buildPutSQL(table string) string {
	k, v, u := mssqlIdent("key"), mssqlIdent("value"), mssqlIdent("updated_at")

	var b strings.Builder
	b.WriteString("MERGE ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" WITH (HOLDLOCK) AS tgt USING (SELECT @p1 AS ")
	b.WriteString(k)
	b.WriteString(", @p2 AS ")
	b.WriteString(v)
	b.WriteString(") AS src ON tgt.")
	b.WriteString(k)
	b.WriteString(" = src.")
	b.WriteString(k)
	fmt.Fprintf(&b, " WHEN MATCHED THEN UPDATE SET tgt.%s = src.%s, tgt.%s = SYSUTCDATETIME()", v, v, u)
	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s, %s, %s) VALUES (src.%s, src.%s, SYSUTCDATETIME());", k, v, u, k, v)
	return b.String()
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.imports" -> [dbo].[imports]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// sqlString escapes s for use inside an N'...' literal.
func sqlString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	Close() error
}

type rowScanner interface {
	Scan(dest ...any) error
}

// sqlDB adapts *sql.DB to dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *sqlDB) Close() error { return s.db.Close() }
