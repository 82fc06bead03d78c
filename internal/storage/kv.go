// Package storage persists monitor state: one content hash per table and one
// serialized record per row identity.
//
// Backends implement the small KV interface and register themselves by kind
// from an init function; import storage/all to link every backend in.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultTable is the table SQL backends create when Config.Table is empty.
const DefaultTable = "onsale_state"

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must match a registered backend ("sqlite", "postgres", "mssql", "memory").
//   - DSN is passed through untouched; validation is backend-specific.
//   - Table may be schema-qualified ("bot.state"); see ValidTableName.
type Config struct {
	Kind  string `yaml:"kind" json:"kind"`
	DSN   string `yaml:"dsn" json:"dsn"`
	Table string `yaml:"table" json:"table"`
}

// TableName returns cfg.Table or DefaultTable.
func (c Config) TableName() string {
	if t := strings.TrimSpace(c.Table); t != "" {
		return t
	}
	return DefaultTable
}

// KV is the string key/value store the monitor keeps its state in.
//
// Get reports ok=false, err=nil for a key that was never written. Put
// overwrites. Implementations must be safe for sequential use from one run at
// a time; the monitor never issues concurrent calls.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Close()
}

// Factory opens a KV for cfg.
type Factory func(ctx context.Context, cfg Config) (KV, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available to Open under kind.
//
// Panics if kind is empty, f is nil, or kind is already registered, so a
// misconfigured binary fails at start instead of picking a backend silently.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open constructs the KV registered for cfg.Kind.
func Open(ctx context.Context, cfg Config) (KV, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	if !ValidTableName(cfg.TableName()) {
		return nil, fmt.Errorf("storage: invalid table name %q", cfg.TableName())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidTableName reports whether name is a plain or schema-qualified
// identifier. Backends still quote it; this only keeps config typos out of DDL.
func ValidTableName(name string) bool {
	return reTableName.MatchString(name)
}
