package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

type recLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

// countingRunner counts calls and delegates to fn when set.
type countingRunner struct {
	calls atomic.Int32
	fn    func(ctx context.Context) error
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.calls.Add(1)
	if r.fn == nil {
		return nil
	}
	return r.fn(ctx)
}

var errRun = errors.New("fetch https://example.test: http status 503")
