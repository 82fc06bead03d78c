// Package memory is a process-local KV. State is lost on exit, so it only
// suits tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

func init() {
	storage.Register("memory", func(context.Context, storage.Config) (storage.KV, error) {
		return New(), nil
	})
}

// KV is a map guarded by a mutex.
type KV struct {
	mu sync.RWMutex
	m  map[string]string
}

func New() *KV {
	return &KV{m: map[string]string{}}
}

func (k *KV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *KV) Put(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *KV) Close() {}

// Snapshot copies the current contents.
func (k *KV) Snapshot() map[string]string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]string, len(k.m))
	for key, v := range k.m {
		out[key] = v
	}
	return out
}
