// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lexscan/internal/batch"
	"lexscan/internal/core"
	"lexscan/internal/formatters"
	"lexscan/internal/orchestrator"
	"lexscan/internal/versioning"

	"github.com/spf13/cobra"
)

// versionFlags are the flags shared by commands that create a version
type versionFlags struct {
	author    string
	comment   string
	tags      []string
	noCompare bool
}

func (f *versionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.author, "author", "", "Author of the version")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Comment stored with the version")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVar(&f.noCompare, "no-compare", false, "Do not diff against the previous version")
}

func (f *versionFlags) options() versioning.CreateOptions {
	return versioning.CreateOptions{
		Author:              f.author,
		Comment:             f.comment,
		Tags:                f.tags,
		CompareWithPrevious: !f.noCompare,
	}
}

func newVersionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage document version histories",
	}
	cmd.AddCommand(
		newVersionCreateCmd(c),
		newVersionHistoryCmd(c),
		newVersionShowCmd(c),
		newVersionSearchCmd(c),
		newVersionCompareCmd(c),
		newVersionRollbackCmd(c),
		newVersionExportCmd(c),
		newVersionImportCmd(c),
	)
	return cmd
}

func newVersionCreateCmd(c *cli) *cobra.Command {
	var (
		document  string
		enableOCR bool
		create    versionFlags
	)
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Analyze a file and record it as the next version",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		_, analysis, err := app.Orchestrator.AnalyzeDocument(ctx, args[0], orchestrator.Options{
			EnableOCR: enableOCR || c.cfg.Analysis.EnableOCR,
		})
		if err != nil {
			return err
		}
		if document == "" {
			document = batch.DocumentID(args[0])
		}
		v, err := app.Versions.CreateVersion(ctx, document, analysis, create.options())
		if err != nil {
			return err
		}
		if err := c.persist(ctx, app); err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: document,
			Versions:   []versioning.Version{v},
		}})
	})
	cmd.Flags().StringVar(&document, "document", "", "Document id (default: file name without extension)")
	cmd.Flags().BoolVar(&enableOCR, "ocr", false, "Extract text with the configured OCR service")
	create.register(cmd)
	return cmd
}

func newVersionHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <document>",
		Short: "List every retained version of a document",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, args []string) error {
		versions, err := app.Versions.GetVersionHistory(args[0])
		if err != nil {
			return err
		}
		branches, err := app.Versions.ListBranches(args[0])
		if err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: args[0],
			Versions:   versions,
			Branches:   branches,
		}})
	})
	return cmd
}

func newVersionShowCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <document> [version]",
		Short: "Show one version by id or number (default: latest)",
		Args:  cobra.RangeArgs(1, 2),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, args []string) error {
		ref := "latest"
		if len(args) == 2 {
			ref = args[1]
		}
		v, err := resolveVersion(app.Versions, args[0], ref)
		if err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: args[0],
			Versions:   []versioning.Version{v},
		}})
	})
	return cmd
}

func newVersionSearchCmd(c *cli) *cobra.Command {
	var (
		author     string
		tags       []string
		from, to   string
		hasChanges bool
	)
	cmd := &cobra.Command{
		Use:   "search <document>",
		Short: "Find versions by author, tag, date range or change presence",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, args []string) error {
		criteria := versioning.SearchCriteria{Author: author, Tags: tags}
		if from != "" || to != "" {
			r, err := parseDateRange(from, to)
			if err != nil {
				return err
			}
			criteria.DateRange = r
		}
		if cmd.Flags().Changed("has-changes") {
			criteria.HasChanges = &hasChanges
		}
		versions, err := app.Versions.SearchVersions(args[0], criteria)
		if err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: args[0],
			Versions:   versions,
		}})
	})
	f := cmd.Flags()
	f.StringVar(&author, "author", "", "Match this author exactly")
	f.StringSliceVar(&tags, "tag", nil, "Require this tag (repeatable)")
	f.StringVar(&from, "from", "", "Earliest timestamp (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "Latest timestamp (RFC3339 or YYYY-MM-DD)")
	f.BoolVar(&hasChanges, "has-changes", false, "Match versions with (or, when false, without) recorded changes")
	return cmd
}

func parseDateRange(from, to string) (*versioning.DateRange, error) {
	var r versioning.DateRange
	var err error
	if from != "" {
		if r.From, err = parseTime(from, false); err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = parseTime(to, true); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return &r, nil
}

// parseTime accepts RFC3339 or a bare date; a bare end date covers the
// whole day
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func newVersionCompareCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <document> <from> <to>",
		Short: "Summarize the changes between two versions",
		Args:  cobra.ExactArgs(3),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		from, err := resolveVersion(app.Versions, args[0], args[1])
		if err != nil {
			return err
		}
		to, err := resolveVersion(app.Versions, args[0], args[2])
		if err != nil {
			return err
		}
		result, err := app.Versions.CompareVersions(ctx, args[0], from.ID, to.ID)
		if err != nil {
			return err
		}
		return c.render(formatters.Report{Diff: &result})
	})
	return cmd
}

func newVersionRollbackCmd(c *cli) *cobra.Command {
	var (
		noBackup bool
		noVerify bool
		author   string
		comment  string
	)
	cmd := &cobra.Command{
		Use:   "rollback <document> <version>",
		Short: "Append a copy of an earlier version as the new head",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		target, err := resolveVersion(app.Versions, args[0], args[1])
		if err != nil {
			return err
		}
		result, err := app.Versions.RollbackToVersion(ctx, args[0], target.ID, versioning.RollbackOptions{
			CreateBackup:      !noBackup,
			ValidateIntegrity: !noVerify,
			Author:            author,
			Comment:           comment,
		})
		if err != nil {
			return err
		}
		if err := c.persist(ctx, app); err != nil {
			return err
		}
		return c.render(formatters.Report{Rollback: &result})
	})
	f := cmd.Flags()
	f.BoolVar(&noBackup, "no-backup", false, "Skip the backup copy of the current head")
	f.BoolVar(&noVerify, "no-verify", false, "Skip the integrity check of the target version")
	f.StringVar(&author, "author", "", "Author of the rollback")
	f.StringVar(&comment, "comment", "", "Comment stored with the restored version")
	return cmd
}

func newVersionExportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <document>",
		Short: "Write a document's history as YAML",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, args []string) error {
		data, err := app.Versions.ExportVersionHistory(args[0])
		if err != nil {
			return err
		}
		return c.write(data)
	})
	return cmd
}

func newVersionImportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace a document's history with an exported YAML file",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		data, err := os.ReadFile(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		documentID, err := app.Versions.ImportVersionHistory(ctx, data)
		if err != nil {
			return err
		}
		if err := c.persist(ctx, app); err != nil {
			return err
		}
		if !c.quiet {
			fmt.Fprintf(c.errOut, "Imported history for %s\n", documentID)
		}
		versions, err := app.Versions.GetVersionHistory(documentID)
		if err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: documentID,
			Versions:   versions,
		}})
	})
	return cmd
}

func newBranchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage named branches of a document's history",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <document> <version> <name>",
		Short: "Create a branch pointing at a version",
		Args:  cobra.ExactArgs(3),
	}
	create.RunE = c.withApp(core.BuildOptions{}, func(ctx context.Context, app *core.App, args []string) error {
		base, err := resolveVersion(app.Versions, args[0], args[1])
		if err != nil {
			return err
		}
		b, err := app.Versions.CreateBranch(ctx, args[0], base.ID, args[2], description)
		if err != nil {
			return err
		}
		if err := c.persist(ctx, app); err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: args[0],
			Versions:   []versioning.Version{},
			Branches:   []versioning.Branch{b},
		}})
	})
	create.Flags().StringVar(&description, "description", "", "Branch description")

	list := &cobra.Command{
		Use:   "list <document>",
		Short: "List a document's branches",
		Args:  cobra.ExactArgs(1),
	}
	list.RunE = c.withApp(core.BuildOptions{}, func(_ context.Context, app *core.App, args []string) error {
		branches, err := app.Versions.ListBranches(args[0])
		if err != nil {
			return err
		}
		return c.render(formatters.Report{History: &formatters.History{
			DocumentID: args[0],
			Versions:   []versioning.Version{},
			Branches:   branches,
		}})
	})

	cmd.AddCommand(create, list)
	return cmd
}
