package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/config"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
)

func newExtractCmd(g *globalFlags) *cobra.Command {
	var (
		file   string
		url    string
		dir    string
		markup bool
	)

	cmd := &cobra.Command{
		Use:   "extract (--file page.html | --url https://... | --dir snapshots/)",
		Short: "Print the tables found in a page, as the monitor would see them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if countSet(file, url, dir) != 1 {
				return usageError{errExtractSource}
			}

			// Only the source section matters here; a missing webhook must not
			// stop a debugging session, so the config is not validated.
			if err := config.LoadDotEnv(g.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}

			if dir != "" {
				return extracthtml.StreamFromDir(cmd.OutOrStdout(), dir, cfg.Source.Extract)
			}

			input := extracthtml.Input{URL: url}
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				input.Reader = f
			}

			loader := extracthtml.NewLoader(extracthtml.LoaderOptions{
				Timeout:   cfg.Source.Timeout,
				UserAgent: cfg.Source.UserAgent,
			})
			stopSpinner := startSpinner(cmd.ErrOrStderr(), url)
			page, err := loader.Load(cmd.Context(), input)
			stopSpinner()
			if err != nil {
				return err
			}

			sections := extracthtml.ExtractTables(page, cfg.Source.Extract)
			if markup {
				for _, s := range sections {
					fmt.Fprintf(cmd.OutOrStdout(), "== %s\n%s\n\n", s.Header, s.Markup)
				}
				return nil
			}
			return extracthtml.DebugPrintTables(cmd.OutOrStdout(), sections)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the page from a local HTML file")
	cmd.Flags().StringVar(&url, "url", "", "fetch the page over HTTP")
	cmd.Flags().StringVar(&dir, "dir", "", "print every table of every saved page in a directory as JSON")
	cmd.Flags().BoolVar(&markup, "markup", false, "print raw table markup instead of parsed rows")
	return cmd
}

func countSet(vals ...string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}

// startSpinner shows progress while a page is fetched. The spinner draws
// nothing unless w is a terminal.
func startSpinner(w io.Writer, url string) (stop func()) {
	if url == "" {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " fetching " + url
	s.Start()
	return s.Stop
}
