package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "run [--validate]",
		Short: "Check the page once, notify about new or changed rows, and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), g.verbose)

			cfg, err := loadConfig(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if validate {
				logger.Info("configuration is valid", "config", g.configPath)
				return nil
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.monitor.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			logger.Debug("run complete", "run_id", res.RunID, "tables", res.Tables, "new", res.New, "changed", res.Changed, "failed", res.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the configuration and exit")
	return cmd
}
