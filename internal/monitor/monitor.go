// Package monitor runs one pass of the on-sale page watcher:
// fetch -> extract -> filter -> per table (parse, detect, notify, persist).
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/metrics"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/rowdiff"
)

type Logger interface {
	Printf(format string, v ...any)
}

// Fetcher returns the page source. *extracthtml.Loader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Store is the persisted state. *storage.Repository implements it.
type Store interface {
	TableHash(ctx context.Context, header string) (string, bool, error)
	PutTableHash(ctx context.Context, header, hash string) error
	RowRecord(ctx context.Context, identity string) (string, bool, error)
	PutRowRecord(ctx context.Context, identity, serialized string) error
}

// Options tunes a Monitor. URL is required.
type Options struct {
	URL     string
	Extract extracthtml.ExtractOptions

	// SkipHeaders drops tables whose header contains any entry,
	// case-insensitively, in addition to DefaultSkipHeaders.
	SkipHeaders []string

	MentionUserID string
	OmitPageURL   bool

	// HoldStateOnFailure leaves a row's stored record untouched when its
	// notification failed, so the next run detects and sends it again.
	HoldStateOnFailure bool

	Logger Logger

	// Test seam; production uses uuid.NewString.
	newRunID func() string
}

// DefaultSkipHeaders filters the away-fixture tables. It always applies.
var DefaultSkipHeaders = []string{"away"}

// Result summarizes one run.
type Result struct {
	RunID     string
	Tables    int
	Skipped   int
	New       int
	Changed   int
	Unchanged int
	Delivered int
	Failed    int
	Persisted int
	Held      int
}

// Monitor is safe for concurrent use; runs are serialized.
type Monitor struct {
	fetcher  Fetcher
	store    Store
	notifier notify.Notifier
	opts     Options

	mu sync.Mutex
}

// New validates its collaborators. A nil notifier yields
// notify.ErrNotConfigured so a missing webhook is reported at startup, not
// on the first change.
func New(f Fetcher, s Store, n notify.Notifier, opts Options) (*Monitor, error) {
	if f == nil {
		return nil, fmt.Errorf("monitor: fetcher is required")
	}
	if s == nil {
		return nil, fmt.Errorf("monitor: store is required")
	}
	if n == nil {
		return nil, notify.ErrNotConfigured
	}
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("monitor: source URL is required")
	}
	opts.SkipHeaders = append(append([]string(nil), DefaultSkipHeaders...), opts.SkipHeaders...)
	if opts.newRunID == nil {
		opts.newRunID = uuid.NewString
	}
	return &Monitor{fetcher: f, store: s, notifier: n, opts: opts}, nil
}

// Run performs one pass. See RunOnce.
func (m *Monitor) Run(ctx context.Context) error {
	_, err := m.RunOnce(ctx)
	return err
}

// RunOnce performs one pass and reports what it did.
//
// Errors:
//   - *extracthtml.FetchError when the page could not be obtained; nothing
//     is written.
//   - storage errors, wrapped; the run stops at the failing table.
//
// A page without the embedded payload, a table without a header row and a
// failed notification are not errors: they are logged and counted.
func (m *Monitor) RunOnce(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := Result{RunID: m.opts.newRunID()}
	logf := m.logger(res.RunID)
	start := time.Now()

	err := m.run(ctx, logf, &res)

	status := "ok"
	if err != nil {
		status = "error"
		logf("stage=run status=error duration=%s err=%v", durMS(start), err)
	} else {
		logf("stage=run ok duration=%s tables=%d new=%d changed=%d delivered=%d failed=%d",
			durMS(start), res.Tables, res.New, res.Changed, res.Delivered, res.Failed)
	}
	labels := metrics.Labels{"status": status}
	metrics.IncCounter("onsalebot_runs_total", 1, labels)
	metrics.ObserveHistogram("onsalebot_run_duration_seconds", time.Since(start).Seconds(), labels)

	return res, err
}

func (m *Monitor) run(ctx context.Context, logf func(string, ...any), res *Result) error {
	fetchStart := time.Now()
	page, err := m.fetcher.Fetch(ctx, m.opts.URL)
	if err != nil {
		return err
	}
	logf("stage=fetch ok bytes=%d duration=%s", len(page), durMS(fetchStart))

	sections := extracthtml.ExtractTables(page, m.opts.Extract)
	logf("stage=extract tables=%d", len(sections))
	if len(sections) == 0 {
		return nil
	}

	seen := make(map[string]int, len(sections))
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.skipped(sec.Header) {
			res.Skipped++
			logf("stage=filter skipped header=%q", sec.Header)
			continue
		}

		// Tables sharing a header keep separate hashes and row state.
		seen[sec.Header]++
		hashKey := sec.Header
		if n := seen[sec.Header]; n > 1 {
			hashKey = sec.Header + " #" + strconv.Itoa(n)
		}

		res.Tables++
		if err := m.processTable(ctx, logf, sec, hashKey, res); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) processTable(ctx context.Context, logf func(string, ...any), sec extracthtml.TableSection, hashKey string, res *Result) error {
	table := extracthtml.ParseTable(sec.Markup)

	hash := rowdiff.HashTable(sec.Header, sec.Markup)
	prevHash, hadHash, err := m.store.TableHash(ctx, hashKey)
	if err != nil {
		return err
	}
	markupChanged := !hadHash || prevHash != hash
	metrics.IncCounter("onsalebot_tables_total", 1, metrics.Labels{"markup_changed": strconv.FormatBool(markupChanged)})

	changes, err := rowdiff.Detect(ctx, hashKey, table, m.store.RowRecord)
	if err != nil {
		return err
	}

	var nNew, nChanged int
	for _, ch := range changes {
		if ch.Kind == rowdiff.KindChanged {
			nChanged++
		} else {
			nNew++
		}
	}
	unchanged := len(table.Rows) - len(changes)
	res.New += nNew
	res.Changed += nChanged
	res.Unchanged += unchanged
	countRows("new", nNew)
	countRows("changed", nChanged)
	countRows("unchanged", unchanged)

	logf("stage=table header=%q columns=%d rows=%d new=%d changed=%d unchanged=%d markup_changed=%t",
		sec.Header, len(table.Columns), len(table.Rows), nNew, nChanged, unchanged, markupChanged)

	failed := m.deliver(ctx, logf, sec.Header, changes, res)

	// Sent messages are final, so their state is saved even when ctx was
	// cancelled during delivery.
	persistCtx := context.WithoutCancel(ctx)
	held := 0
	for _, ch := range changes {
		if m.opts.HoldStateOnFailure && failed[ch.Identity] {
			held++
			continue
		}
		if err := m.store.PutRowRecord(persistCtx, ch.Identity, ch.Serialized); err != nil {
			return err
		}
		res.Persisted++
	}
	res.Held += held

	if markupChanged {
		if err := m.store.PutTableHash(persistCtx, hashKey, hash); err != nil {
			return err
		}
	}
	if len(changes) > 0 {
		logf("stage=persist header=%q rows=%d held=%d", sec.Header, len(changes)-held, held)
	}
	return nil
}

// deliver sends one message per change in row order and returns the
// identities whose delivery failed. Failures never stop the loop.
func (m *Monitor) deliver(ctx context.Context, logf func(string, ...any), header string, changes []rowdiff.Change, res *Result) map[string]bool {
	failed := map[string]bool{}
	for _, ch := range changes {
		in := rowdiff.NotificationInput{
			TableHeader:   header,
			Kind:          ch.Kind,
			Body:          rowdiff.Render(ch),
			MentionUserID: m.opts.MentionUserID,
		}
		if !m.opts.OmitPageURL {
			in.PageURL = m.opts.URL
		}

		if err := m.notifier.Notify(ctx, rowdiff.RenderNotification(in)); err != nil {
			failed[ch.Identity] = true
			res.Failed++
			metrics.IncCounter("onsalebot_notifications_total", 1, metrics.Labels{"status": "error"})

			var de *notify.DeliveryError
			if errors.As(err, &de) && de.StatusCode != 0 {
				logf("stage=deliver status=error identity=%s kind=%s http_status=%d err=%v", ch.Identity, ch.Kind, de.StatusCode, err)
			} else {
				logf("stage=deliver status=error identity=%s kind=%s err=%v", ch.Identity, ch.Kind, err)
			}
			continue
		}
		res.Delivered++
		metrics.IncCounter("onsalebot_notifications_total", 1, metrics.Labels{"status": "ok"})
		logf("stage=deliver ok identity=%s kind=%s", ch.Identity, ch.Kind)
	}
	return failed
}

func (m *Monitor) skipped(header string) bool {
	h := strings.ToLower(header)
	for _, s := range m.opts.SkipHeaders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" && strings.Contains(h, s) {
			return true
		}
	}
	return false
}

func (m *Monitor) logger(runID string) func(format string, v ...any) {
	var printf func(string, ...any)
	if m.opts.Logger == nil {
		printf = log.New(discardWriter{}, "", 0).Printf
	} else {
		printf = m.opts.Logger.Printf
	}
	prefix := "run_id=" + runID + " "
	return func(format string, v ...any) {
		printf(prefix+format, v...)
	}
}

func countRows(kind string, n int) {
	if n > 0 {
		metrics.IncCounter("onsalebot_rows_total", float64(n), metrics.Labels{"kind": kind})
	}
}

func durMS(start time.Time) time.Duration {
	return time.Since(start).Truncate(time.Millisecond)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
