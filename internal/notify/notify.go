// Package notify delivers rendered change messages to a chat channel.
//
// Delivery backends register by kind, like storage backends do:
//
//	discord  Discord webhook via discordgo
//	webhook  generic JSON POST {"content": "..."}
//	log      writes messages to a Logger (dry runs)
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Notifier sends one message.
//
// Implementations return *DeliveryError when the message was not accepted.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// Config selects and configures a delivery backend.
type Config struct {
	Kind       string        `yaml:"kind" json:"kind"`
	WebhookURL string        `yaml:"webhook_url" json:"webhook_url"`
	Username   string        `yaml:"username" json:"username"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// Logger is used by the "log" kind.
	Logger Logger `yaml:"-" json:"-"`
}

// Logger is the minimal logger notify depends on.
type Logger interface {
	Printf(format string, args ...any)
}

// ErrNotConfigured is returned at construction when a backend needs a
// webhook URL and none was given.
var ErrNotConfigured = errors.New("webhook URL not set")

// DeliveryError reports a message the channel did not accept.
type DeliveryError struct {
	// Target identifies the destination without leaking its secret token.
	Target     string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("deliver to %s: http status %d: %v", e.Target, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("deliver to %s: %v", e.Target, e.Err)
	default:
		return fmt.Sprintf("deliver to %s: http status %d: %s", e.Target, e.StatusCode, e.Body)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Factory builds a Notifier for cfg.
type Factory func(cfg Config) (Notifier, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available to New under kind. It panics on an
// empty kind, a nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("notify: Register called with empty kind")
	}
	if f == nil {
		panic("notify: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("notify: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the Notifier registered for cfg.Kind.
func New(cfg Config) (Notifier, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("notify: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("notify: unsupported kind=%s (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(cfg)
}

// Kinds lists registered kinds, sorted.
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

// RedactURL keeps scheme, host and the first path segment of raw so errors
// and logs can name a webhook without exposing its token.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if first == "" {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/" + first + "/…"
}
