package main

import (
	"context"
	"fmt"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/config"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/metrics"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/metrics/datadog"
)

type metricsBackend interface {
	metrics.Backend
	Close() error
}

// Test seams.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	setMetricsBackend = metrics.SetBackend
)

// initMetrics wires the configured backend into package metrics. cleanup is
// never nil; it stops the backend and flushes what is buffered.
func initMetrics(ctx context.Context, cfg config.Metrics, logf func(string, ...any)) (cleanup func(), err error) {
	cleanup = func() {}

	switch cfg.Backend {
	case "", "none":
		return cleanup, nil

	case "datadog":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    cfg.JobName,
			Tags:       cfg.Tags,
			FlushEvery: cfg.FlushEvery,
		})
		if err != nil {
			return cleanup, fmt.Errorf("metrics: datadog: %w", err)
		}
		setMetricsBackend(b)
		logf("metrics: backend=datadog job_name=%s tags=%v flush_every=%s", cfg.JobName, cfg.Tags, cfg.FlushEvery)

		return func() {
			if err := b.Close(); err != nil {
				logf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return cleanup, fmt.Errorf("metrics: unknown backend %q", cfg.Backend)
	}
}
