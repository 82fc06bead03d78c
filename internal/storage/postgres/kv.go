package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

/*
KV implements storage.KV for Postgres.

State lives in one table:

	key        TEXT PRIMARY KEY
	value      TEXT NOT NULL
	updated_at TIMESTAMPTZ NOT NULL

Put is a single INSERT ... ON CONFLICT (key) DO UPDATE, so concurrent
writers for the same key never fail on the primary key.
*/
type KV struct {
	pool  *pgxpool.Pool
	table string
}

// New creates a pgx pool for cfg.DSN and ensures the state table exists.
func New(ctx context.Context, cfg storage.Config) (storage.KV, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	kv := &KV{pool: pool, table: cfg.TableName()}
	schemaSQL, tableSQL := buildCreateSQL(kv.table)
	if schemaSQL != "" {
		if _, err := pool.Exec(ctx, schemaSQL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: create schema for %s: %w", kv.table, err)
		}
	}
	if _, err := pool.Exec(ctx, tableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create table %s: %w", kv.table, err)
	}
	return kv, nil
}

// Close closes the connection pool.
func (k *KV) Close() {
	k.pool.Close()
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := k.pool.QueryRow(ctx, buildGetSQL(k.table), key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *KV) Put(ctx context.Context, key, value string) error {
	_, err := k.pool.Exec(ctx, buildPutSQL(k.table), key, value)
	return err
}

// buildCreateSQL returns the DDL for table. schemaSQL is empty unless the
// name is schema-qualified.
//
// Pure so it can be unit tested without a database.
func buildCreateSQL(table string) (schemaSQL, tableSQL string) {
	if i := strings.IndexByte(table, '.'); i > 0 {
		schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgIdent(table[:i])
	}
	tableSQL = fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s TIMESTAMPTZ NOT NULL DEFAULT now())",
		pgTableIdent(table), pgIdent("key"), pgIdent("value"), pgIdent("updated_at"),
	)
	return schemaSQL, tableSQL
}

func buildGetSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", pgIdent("value"), pgTableIdent(table), pgIdent("key"))
}

func buildPutSQL(table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, now()) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s",
		pgTableIdent(table), pgIdent("key"), pgIdent("value"), pgIdent("updated_at"),
		pgIdent("key"),
		pgIdent("value"), pgIdent("value"),
		pgIdent("updated_at"), pgIdent("updated_at"),
	)
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// pgTableIdent quotes a possibly schema-qualified name: "bot.state" ->
// "bot"."state".
func pgTableIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
