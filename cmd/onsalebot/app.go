package main

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/config"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/monitor"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"

	// Delivery and storage backends register themselves; the config picks one.
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify/discord"
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify/webhook"
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage/all"
)

// app owns everything one process needs to run the monitor.
type app struct {
	monitor *monitor.Monitor
	repo    *storage.Repository
	cleanup func()
}

func newApp(ctx context.Context, cfg config.Config, logger *charmlog.Logger) (*app, error) {
	stopMetrics, err := initMetrics(ctx, cfg.Metrics, logger.Printf)
	if err != nil {
		// Metrics are optional; keep the nop backend.
		logger.Warn("metrics disabled", "err", err)
	}

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		stopMetrics()
		return nil, err
	}
	repo := storage.NewRepository(kv)
	logger.Debug("storage opened", "kind", cfg.Storage.Kind, "table", cfg.Storage.TableName())

	n, err := notify.New(notify.Config{
		Kind:       cfg.Notify.Kind,
		WebhookURL: cfg.Notify.WebhookURL,
		Username:   cfg.Notify.Username,
		Timeout:    cfg.Notify.Timeout,
		Logger:     logger,
	})
	if err != nil {
		repo.Close()
		stopMetrics()
		return nil, fmt.Errorf("notify: %w", err)
	}
	logger.Debug("notifier ready", "kind", cfg.Notify.Kind, "target", notify.RedactURL(cfg.Notify.WebhookURL))

	loader := extracthtml.NewLoader(extracthtml.LoaderOptions{
		Timeout:   cfg.Source.Timeout,
		UserAgent: cfg.Source.UserAgent,
	})

	m, err := monitor.New(loader, repo, n, monitor.Options{
		URL:                cfg.Source.URL,
		Extract:            cfg.Source.Extract,
		SkipHeaders:        cfg.Monitor.SkipHeaders,
		MentionUserID:      cfg.Notify.MentionUserID,
		OmitPageURL:        cfg.Notify.OmitPageURL,
		HoldStateOnFailure: cfg.Notify.HoldStateOnFailure,
		Logger:             logger,
	})
	if err != nil {
		repo.Close()
		stopMetrics()
		return nil, err
	}

	return &app{
		monitor: m,
		repo:    repo,
		cleanup: func() {
			repo.Close()
			stopMetrics()
		},
	}, nil
}

func (a *app) Close() { a.cleanup() }
