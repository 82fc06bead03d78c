package notify

import (
	"context"
	"strings"
)

func init() {
	Register("log", func(cfg Config) (Notifier, error) {
		return NewLogNotifier(cfg.Logger), nil
	})
}

// LogNotifier writes messages to a Logger instead of delivering them.
type LogNotifier struct {
	logger Logger
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

func NewLogNotifier(l Logger) *LogNotifier {
	if l == nil {
		l = discardLogger{}
	}
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(_ context.Context, msg string) error {
	n.logger.Printf("stage=notify dry_run message=%q", strings.TrimSpace(msg))
	return nil
}
