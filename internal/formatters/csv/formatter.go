// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lexscan/internal/formatters"
	"lexscan/internal/versioning"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	var rows [][]string
	switch {
	case report.Analysis != nil:
		rows = f.analysisRows(report, options)
	case report.History != nil:
		rows = f.versionRows(report.History.Versions)
	case report.Diff != nil:
		rows = f.diffRows(report.Diff)
	case report.Rollback != nil:
		versions := []versioning.Version{report.Rollback.Restored}
		if report.Rollback.Backup != nil {
			versions = append([]versioning.Version{*report.Rollback.Backup}, versions...)
		}
		rows = f.versionRows(versions)
	case report.Batch != nil:
		rows = f.batchRows(report.Batch)
	default:
		return "", formatters.ErrEmptyReport
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		for j := range row {
			row[j] = f.escapeCSVField(row[j])
		}
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (f *Formatter) analysisRows(report formatters.Report, options formatters.FormatterOptions) [][]string {
	a := report.Analysis
	headers := []string{"Record", "Type", "Text", "Confidence", "Start", "End", "Detail"}
	rows := [][]string{headers}
	for _, e := range a.Entities {
		detail := string(e.SourceType)
		if options.ShowText {
			detail = e.Context
		}
		rows = append(rows, []string{"entity", e.EntityType, e.Text, ftoa(e.Confidence), strconv.Itoa(e.StartPos), strconv.Itoa(e.EndPos), detail})
	}
	if options.Verbose {
		for _, p := range a.Patterns {
			rows = append(rows, []string{"pattern", p.Pattern, p.Text, ftoa(p.Confidence), strconv.Itoa(p.StartPos), strconv.Itoa(p.EndPos), p.Category})
		}
	}
	for _, c := range a.ComplianceChecks {
		rows = append(rows, []string{"compliance", c.Regulation, c.Requirement, "", "", "", fmt.Sprintf("%s/%s", c.Status, c.Priority)})
	}
	return rows
}

func (f *Formatter) versionRows(versions []versioning.Version) [][]string {
	rows := [][]string{{"Version", "ID", "Timestamp", "Author", "Changes", "Tags", "Hash", "Word Count"}}
	for _, v := range versions {
		rows = append(rows, []string{
			strconv.Itoa(v.Version),
			v.ID,
			v.Timestamp.UTC().Format(time.RFC3339),
			v.Author,
			strconv.Itoa(len(v.Changes)),
			strings.Join(v.Tags, ";"),
			v.Fingerprint.Hash,
			strconv.Itoa(v.Metadata.WordCount),
		})
	}
	return rows
}

func (f *Formatter) diffRows(d *versioning.DiffResult) [][]string {
	rows := [][]string{{"Type", "Severity", "Category", "Start", "End", "Section", "Old", "New", "Confidence"}}
	for _, c := range d.Changes {
		rows = append(rows, []string{
			string(c.Type),
			string(c.Severity),
			string(c.Category),
			strconv.Itoa(c.Location.Start),
			strconv.Itoa(c.Location.End),
			c.Location.Section,
			c.OldContent,
			c.NewContent,
			ftoa(c.Confidence),
		})
	}
	return rows
}

func (f *Formatter) batchRows(b *formatters.BatchReport) [][]string {
	rows := [][]string{{"File", "Job ID", "Document ID", "Version", "Entities", "Confidence", "Duration ms", "Error"}}
	for _, r := range b.Results {
		item := formatters.NewBatchItem(r)
		version := ""
		if item.Version > 0 {
			version = strconv.Itoa(item.Version)
		}
		rows = append(rows, []string{
			item.FilePath,
			item.JobID,
			item.DocumentID,
			version,
			strconv.Itoa(item.Entities),
			ftoa(item.Confidence),
			strconv.FormatInt(item.DurationMS, 10),
			item.Error,
		})
	}
	return rows
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes cells a spreadsheet would evaluate
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
