package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	m          map[string]string
	getErr     error
	putErr     error
	closeCalls int
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.m[key]
	return v, ok, nil
}

func (f *fakeKV) Put(_ context.Context, key, value string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.m == nil {
		f.m = map[string]string{}
	}
	f.m[key] = value
	return nil
}

func (f *fakeKV) Close() { f.closeCalls++ }

func TestRegister_Panics(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, Config) (KV, error) { return &fakeKV{}, nil }

	require.Panics(t, func() { Register("", noop) })
	require.Panics(t, func() { Register("test-nil", nil) })

	Register("test-dup", noop)
	require.Panics(t, func() { Register("test-dup", noop) })
}

func TestOpen(t *testing.T) {
	t.Parallel()

	var got Config
	Register("test-open", func(_ context.Context, cfg Config) (KV, error) {
		got = cfg
		return &fakeKV{}, nil
	})

	_, err := Open(context.Background(), Config{})
	require.Error(t, err)

	_, err = Open(context.Background(), Config{Kind: "nope"})
	require.ErrorContains(t, err, "unsupported kind=nope")

	_, err = Open(context.Background(), Config{Kind: "test-open", Table: "bad name; drop"})
	require.ErrorContains(t, err, "invalid table name")

	kv, err := Open(context.Background(), Config{Kind: "test-open", DSN: "x"})
	require.NoError(t, err)
	require.NotNil(t, kv)
	require.Equal(t, "x", got.DSN)
	require.Equal(t, DefaultTable, got.TableName())
	require.Contains(t, Kinds(), "test-open")
}

func TestValidTableName(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"onsale_state", "bot.state", "_t1"} {
		require.True(t, ValidTableName(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "a.b.c", "a-b", `a"b`, "a b"} {
		require.False(t, ValidTableName(bad), bad)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	require.Equal(t, "table_hash:Home Games", TableHashKey("  Home   Games "))
	require.Equal(t, "row:home_sat_12_aug_arsenal", RowKey("home_sat_12_aug_arsenal"))
	require.NotEqual(t, TableHashKey("x"), RowKey("x"))
}

func TestRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := &fakeKV{}
	repo := NewRepository(kv)

	_, ok, err := repo.TableHash(ctx, "Home")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.PutTableHash(ctx, "Home", "abc"))
	require.NoError(t, repo.PutRowRecord(ctx, "home_1", `{"fields":[]}`))

	h, ok, err := repo.TableHash(ctx, "Home")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", h)

	rec, ok, err := repo.RowRecord(ctx, "home_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"fields":[]}`, rec)

	require.Equal(t, map[string]string{"table_hash:Home": "abc", "row:home_1": `{"fields":[]}`}, kv.m)

	repo.Close()
	require.Equal(t, 1, kv.closeCalls)
}

func TestRepository_WrapsErrorsWithKey(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	repo := NewRepository(&fakeKV{getErr: boom, putErr: boom})

	_, _, err := repo.RowRecord(context.Background(), "id")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "row:id")

	err = repo.PutTableHash(context.Background(), "Home", "h")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "table_hash:Home")
}
