package storage

import (
	"context"
	"fmt"
)

// Repository is the typed view of a KV the monitor works with.
type Repository struct {
	kv KV
}

// NewRepository wraps kv. The repository owns kv from here on.
func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// TableHash returns the stored content hash of the table under header.
func (r *Repository) TableHash(ctx context.Context, header string) (string, bool, error) {
	return r.get(ctx, TableHashKey(header))
}

// PutTableHash stores the content hash of the table under header.
func (r *Repository) PutTableHash(ctx context.Context, header, hash string) error {
	return r.put(ctx, TableHashKey(header), hash)
}

// RowRecord returns the stored serialized record for identity.
func (r *Repository) RowRecord(ctx context.Context, identity string) (string, bool, error) {
	return r.get(ctx, RowKey(identity))
}

// PutRowRecord stores the serialized record for identity.
func (r *Repository) PutRowRecord(ctx context.Context, identity, serialized string) error {
	return r.put(ctx, RowKey(identity), serialized)
}

// Close releases the underlying backend.
func (r *Repository) Close() {
	if r == nil || r.kv == nil {
		return
	}
	r.kv.Close()
}

func (r *Repository) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := r.kv.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return v, ok, nil
}

func (r *Repository) put(ctx context.Context, key, value string) error {
	if err := r.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}
