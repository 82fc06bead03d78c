package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		noHTTP     bool
		runOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run on the configured cron schedule and serve GET|POST /run for manual runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger(cmd.ErrOrStderr(), g.verbose)

			cfg, err := loadConfig(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("run-on-start") {
				cfg.Schedule.RunOnStart = runOnStart
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := trigger.NewScheduler(cfg.Schedule.Cron, a.monitor, trigger.SchedulerOptions{
				RunOnStart: cfg.Schedule.RunOnStart,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			sched.Start(ctx)
			defer func() {
				logger.Info("waiting for the running check to finish")
				<-sched.Stop().Done()
			}()
			logger.Info("scheduler started", "cron", cfg.Schedule.Cron, "next", sched.Next().Format(time.RFC3339))

			if noHTTP {
				<-ctx.Done()
				return nil
			}

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           trigger.NewHandler(a.monitor, trigger.HandlerOptions{AccessLog: g.verbose, Logger: logger}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				logger.Info("http listening", "addr", cfg.HTTP.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "only run on the schedule; do not serve /run")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run once immediately (overrides schedule.run_on_start)")
	return cmd
}
