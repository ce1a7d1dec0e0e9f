// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"lexscan/internal/config"
	"lexscan/internal/core"
	"lexscan/internal/formatters"
	"lexscan/internal/logger"

	// Register formatters
	_ "lexscan/internal/formatters/csv"
	_ "lexscan/internal/formatters/json"
	_ "lexscan/internal/formatters/text"
	_ "lexscan/internal/formatters/yaml"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cli carries global flags and the loaded configuration for one invocation
type cli struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	format     string
	outputFile string
	logLevel   string
	noColor    bool
	verbose    bool
	showText   bool
	quiet      bool

	cfg *config.Config
	log zerolog.Logger
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfiguration reads the config file named by --config, or the first
// one found in the standard locations. A broken discovered file falls back
// to defaults with a warning; an explicit one is an error.
func (c *cli) loadConfiguration() error {
	path := c.configFile
	explicit := path != ""
	if !explicit {
		path = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit {
			return err
		}
		fmt.Fprintf(c.errOut, "Warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	c.cfg = cfg

	c.log = logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Pretty:     cfg.Logging.Pretty && isTerminal(c.errOut),
		Output:     c.errOut,
		WithCaller: cfg.Logging.WithCaller,
	})
	return nil
}

// withApp builds the services for one command and closes them afterwards
func (c *cli) withApp(opts core.BuildOptions, fn func(ctx context.Context, app *core.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := core.Build(ctx, c.cfg, c.log, opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				c.log.Warn().Err(err).Msg("failed to close services")
			}
		}()
		return fn(ctx, app, args)
	}
}

// persist writes the version store after a mutation
func (c *cli) persist(ctx context.Context, app *core.App) error {
	if err := app.Persist(ctx); err != nil {
		return fmt.Errorf("failed to save version history: %w", err)
	}
	return nil
}

func (c *cli) formatterOptions() formatters.FormatterOptions {
	return formatters.FormatterOptions{
		Verbose:  c.verbose,
		NoColor:  c.noColor || c.outputFile != "" || !isTerminal(c.out),
		ShowText: c.showText,
	}
}

// render formats report and writes it to --output or stdout
func (c *cli) render(report formatters.Report) error {
	content, err := formatters.Export(c.format, report, c.formatterOptions())
	if err != nil {
		return err
	}
	return c.write([]byte(content))
}

func (c *cli) write(data []byte) error {
	if c.outputFile == "" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(c.outputFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !c.quiet {
		fmt.Fprintf(c.errOut, "Results written to %s\n", c.outputFile)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
