// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"lexscan/internal/batch"
	"lexscan/internal/core"
	"lexscan/internal/extraction"
	"lexscan/internal/formatters"
	"lexscan/internal/logger"
	"lexscan/internal/orchestrator"
	"lexscan/internal/version"
	"lexscan/internal/versioning"
	"lexscan/internal/web"

	"github.com/spf13/cobra"
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "lexscan",
		Short: "Analyze legal documents and track their versions",
		Long: `lexscan extracts text from legal documents, recognizes parties, dates,
amounts and clauses, checks them against compliance keyword families and
keeps a version history per document with diffs, rollback and branches.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := formatters.Get(c.format); !ok {
				return fmt.Errorf("unsupported format '%s'. Available formats: %v", c.format, formatters.List())
			}
			return c.loadConfiguration()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate("{{.Name}} " + version.Info() + "\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "Path to configuration file (YAML)")
	pf.StringVarP(&c.format, "format", "f", "text", "Output format: text, json, csv, yaml")
	pf.StringVarP(&c.outputFile, "output", "o", "", "Write results to this file instead of stdout")
	pf.StringVar(&c.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error, off)")
	pf.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Display detailed information")
	pf.BoolVar(&c.showText, "show-text", false, "Include extracted text and entity context in the output")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "Suppress progress output")

	root.AddCommand(
		newAnalyzeCmd(c),
		newBatchCmd(c),
		newServeCmd(c),
		newInfoCmd(c),
		newDocumentsCmd(c),
		newVersionCmd(c),
		newBranchCmd(c),
	)
	return root
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		enableOCR bool
		save      bool
		document  string
		create    versionFlags
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one document",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		_, analysis, err := app.Orchestrator.AnalyzeDocument(ctx, args[0], orchestrator.Options{
			EnableOCR: enableOCR || c.cfg.Analysis.EnableOCR,
		})
		if err != nil {
			return err
		}
		if save {
			docID := document
			if docID == "" {
				docID = batch.DocumentID(args[0])
			}
			v, err := app.Versions.CreateVersion(ctx, docID, analysis, create.options())
			if err != nil {
				return err
			}
			if err := c.persist(ctx, app); err != nil {
				return err
			}
			if !c.quiet {
				fmt.Fprintf(c.errOut, "Saved %s as version %d (%s)\n", docID, v.Version, v.ID)
			}
		}
		return c.render(formatters.Report{Analysis: analysis})
	})

	cmd.Flags().BoolVar(&enableOCR, "ocr", false, "Extract text with the configured OCR service")
	cmd.Flags().BoolVar(&save, "save", false, "Record the analysis as a new version")
	cmd.Flags().StringVar(&document, "document", "", "Document id for --save (default: file name without extension)")
	create.register(cmd)
	return cmd
}

func newBatchCmd(c *cli) *cobra.Command {
	var (
		enableOCR   bool
		recursive   bool
		autoVersion bool
		concurrency int
		chunkSize   int
		author      string
	)
	cmd := &cobra.Command{
		Use:   "batch <path>...",
		Short: "Analyze many documents concurrently",
		Long: `Analyze files and directories. Directories are expanded to the files
lexscan can extract text from.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		files, err := expandPaths(args, recursive)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no supported documents found")
		}

		opts := app.BatchOptions()
		opts.Analysis.EnableOCR = opts.Analysis.EnableOCR || enableOCR
		opts.AutoVersion = opts.AutoVersion || autoVersion
		opts.Author = author
		if cmd.Flags().Changed("concurrency") {
			opts.Concurrency = concurrency
		}
		if cmd.Flags().Changed("chunk-size") {
			opts.ChunkSize = chunkSize
		}
		if !c.quiet {
			opts.Progress = func(completed, total int, currentFile string) {
				fmt.Fprintf(c.errOut, "\r[%d/%d] %s", completed, total, filepath.Base(currentFile))
				if completed == total {
					fmt.Fprintln(c.errOut)
				}
			}
		}

		results, stats, runErr := app.Batch.Run(ctx, files, opts)
		if opts.AutoVersion && stats.Versioned > 0 {
			if err := c.persist(ctx, app); err != nil {
				return err
			}
		}
		if err := c.render(formatters.Report{Batch: &formatters.BatchReport{Results: results, Stats: stats}}); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
		if stats.FailedFiles > 0 {
			return fmt.Errorf("%d of %d files failed", stats.FailedFiles, stats.TotalFiles)
		}
		return nil
	})

	f := cmd.Flags()
	f.BoolVar(&enableOCR, "ocr", false, "Extract text with the configured OCR service")
	f.BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	f.BoolVar(&autoVersion, "auto-version", false, "Record each successful analysis as a new version")
	f.IntVar(&concurrency, "concurrency", 4, "Documents analyzed at once")
	f.IntVar(&chunkSize, "chunk-size", 10, "Documents per chunk")
	f.StringVar(&author, "author", "", "Author recorded on auto-created versions")
	return cmd
}

// expandPaths resolves files and directories into a sorted, de-duplicated
// list of supported documents
func expandPaths(paths []string, recursive bool) ([]string, error) {
	manager := extraction.DefaultManager()
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && manager.Supports(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, _ []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := web.Config{
			Addr:         app.Config.Server.Addr,
			ReadTimeout:  app.Config.Server.ReadTimeout,
			WriteTimeout: app.Config.Server.WriteTimeout,
		}
		if addr != "" {
			cfg.Addr = addr
		}
		srv := web.NewServer(cfg, web.Services{
			Orchestrator: app.Orchestrator,
			Versions:     app.Versions,
			Persist:      app.Persist,
		}, logger.Component(app.Logger, "web"))
		return srv.Start(ctx)
	})
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from configuration, :8080)")
	return cmd
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.format == "json" {
				data, err := json.MarshalIndent(version.Full(), "", "  ")
				if err != nil {
					return err
				}
				return c.write(append(data, '\n'))
			}
			return c.write([]byte(version.Info() + "\n"))
		},
	}
}

func newDocumentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List documents with a version history",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, _ []string) error {
		docs := app.Versions.Documents()
		if c.format == "json" {
			data, err := json.MarshalIndent(docs, "", "  ")
			if err != nil {
				return err
			}
			return c.write(append(data, '\n'))
		}
		var out []byte
		for _, d := range docs {
			latest, err := app.Versions.GetLatestVersion(d)
			if err != nil {
				return err
			}
			out = fmt.Appendf(out, "%s\tv%d\t%s\n", d, latest.Version, latest.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
		}
		return c.write(out)
	})
	return cmd
}

// resolveVersion accepts a version id, a version number or "latest"
func resolveVersion(store *versioning.Store, documentID, ref string) (versioning.Version, error) {
	if ref == "latest" {
		return store.GetLatestVersion(documentID)
	}
	v, err := store.GetVersion(documentID, ref)
	if err == nil {
		return v, nil
	}
	if n, convErr := strconv.Atoi(strings.TrimPrefix(ref, "v")); convErr == nil {
		return store.GetVersionByNumber(documentID, n)
	}
	return versioning.Version{}, err
}
