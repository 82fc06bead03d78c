package trigger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerOptions tunes a Scheduler.
type SchedulerOptions struct {
	// RunOnStart fires one run as soon as Start is called instead of
	// waiting for the first tick.
	RunOnStart bool

	// Timeout bounds each run. Zero means no limit beyond the parent context.
	Timeout time.Duration

	Location *time.Location
	Logger   Logger
}

// Scheduler runs r on a standard five-field cron spec. A tick that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	runner Runner
	opts   SchedulerOptions
	logger Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler parses spec and registers the job. Nothing runs until Start.
func NewScheduler(spec string, r Runner, opts SchedulerOptions) (*Scheduler, error) {
	if r == nil {
		return nil, fmt.Errorf("trigger: runner is required")
	}
	logger := orDiscard(opts.Logger)
	cl := cronLogger{l: logger}

	cronOpts := []cron.Option{
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	}
	if opts.Location != nil {
		cronOpts = append(cronOpts, cron.WithLocation(opts.Location))
	}

	s := &Scheduler{
		cron:   cron.New(cronOpts...),
		runner: r,
		opts:   opts,
		logger: logger,
		ctx:    context.Background(),
	}
	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("trigger: cron spec %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins ticking. Runs use ctx as their parent; cancel it (and call
// Stop) to shut down.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Printf("stage=schedule started next=%s", s.Next().Format(time.RFC3339))

	if s.opts.RunOnStart {
		go s.fire()
	}
}

// Stop stops ticking and returns a context that is done once the running
// job, if any, has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next is the time of the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// fire runs the job through the same chain as a tick, so it is skipped
// while a scheduled run is active.
func (s *Scheduler) fire() {
	if e := s.cron.Entry(s.entry); e.WrappedJob != nil {
		e.WrappedJob.Run()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx := parent
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.runner.Run(ctx); err != nil {
		s.logger.Printf("stage=schedule status=error duration=%s err=%v", time.Since(start).Truncate(time.Millisecond), err)
		return
	}
	s.logger.Printf("stage=schedule ok duration=%s", time.Since(start).Truncate(time.Millisecond))
}

// cronLogger adapts cron's structured logger to Printf key=value lines.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	// Only skips are reported; cron also logs every wake-up at info.
	if msg != "skip" {
		return
	}
	c.l.Printf("stage=schedule skipped reason=still_running%s", formatKV(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Printf("stage=schedule status=error msg=%q%s err=%v", msg, formatKV(keysAndValues), err)
}

func formatKV(keysAndValues []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
