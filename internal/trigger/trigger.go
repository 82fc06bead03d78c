// Package trigger starts monitor runs: on a cron schedule (Scheduler) and
// on request over HTTP (Handler). Both call the same Runner.
package trigger

import (
	"context"
	"log"
)

// Runner performs one monitor pass. *monitor.Monitor implements it.
type Runner interface {
	Run(ctx context.Context) error
}

type Logger interface {
	Printf(format string, v ...any)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }

func orDiscard(l Logger) Logger {
	if l == nil {
		return log.New(discardWriter{}, "", 0)
	}
	return l
}
