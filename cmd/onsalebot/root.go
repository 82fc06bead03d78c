package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/config"
)

var (
	// errInvalidConfig is returned after the issues have already been printed.
	errInvalidConfig = errors.New("configuration is invalid")

	errExtractSource = errors.New("extract: exactly one of --file, --url or --dir is required")
)

type globalFlags struct {
	configPath string
	envFiles   []string
	verbose    bool
}

// execute runs the CLI and returns the process exit code:
// 0 success, 1 failure, 2 usage error.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		if !errors.Is(err, errInvalidConfig) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "onsalebot",
		Short:         "onsalebot posts Chelsea FC ticket on-sale date changes to Discord.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config path (defaults and environment apply without one)")
	pf.StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs with timestamps")

	root.AddCommand(newRunCmd(g), newServeCmd(g), newExtractCmd(g))
	return root
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newLogger(w io.Writer, verbose bool) *charmlog.Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Prefix:          "onsalebot",
		ReportTimestamp: verbose,
		TimeFormat:      time.RFC3339,
		Level:           charmlog.InfoLevel,
	})
	if verbose {
		l.SetLevel(charmlog.DebugLevel)
	}
	return l
}

// loadConfig reads .env files, the config file and the environment, then
// prints every validation issue. Errors abort with errInvalidConfig.
func loadConfig(g *globalFlags, stderr io.Writer) (config.Config, error) {
	if err := config.LoadDotEnv(g.envFiles...); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.Config{}, errInvalidConfig
	}
	return cfg, nil
}
