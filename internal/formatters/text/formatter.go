// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"
	"time"

	"lexscan/internal/diff"
	"lexscan/internal/document"
	"lexscan/internal/formatters"
	"lexscan/internal/versioning"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	var b strings.Builder
	switch {
	case report.Analysis != nil:
		f.writeAnalysis(&b, report.Analysis, options)
	case report.History != nil:
		f.writeHistory(&b, report.History, options)
	case report.Diff != nil:
		f.writeDiff(&b, report.Diff, options)
	case report.Rollback != nil:
		f.writeRollback(&b, report.Rollback, options)
	case report.Batch != nil:
		f.writeBatch(&b, report.Batch, options)
	default:
		return "", formatters.ErrEmptyReport
	}
	return b.String(), nil
}

// paint applies a named color unless color is disabled
func (f *Formatter) paint(options formatters.FormatterOptions, name, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) heading(b *strings.Builder, options formatters.FormatterOptions, title string) {
	b.WriteString(f.paint(options, "white", "=== %s ===", title))
	b.WriteString("\n")
}

func (f *Formatter) writeAnalysis(b *strings.Builder, a *document.Analysis, options formatters.FormatterOptions) {
	f.heading(b, options, "Document Analysis")
	fmt.Fprintf(b, "File:        %s\n", a.FilePath)
	fmt.Fprintf(b, "Analysis ID: %s\n", a.ID)
	fmt.Fprintf(b, "Type:        %s\n", f.paint(options, "cyan", "%s", a.Insights.DocumentType))
	fmt.Fprintf(b, "Pages:       %d\n", a.Fingerprint.Structure.PageCount)
	fmt.Fprintf(b, "Words:       %d\n", a.Fingerprint.Structure.WordCount)
	fmt.Fprintf(b, "Hash:        %s\n", shortHash(a.Fingerprint.Hash))
	fmt.Fprintf(b, "Confidence:  %s\n", f.paint(options, "blue", "%.2f", a.Metadata.Confidence))
	fmt.Fprintf(b, "Complexity:  %s (%d sentences, avg %.1f chars)\n",
		a.Insights.Complexity, a.Insights.SentenceCount, a.Insights.AverageSentenceLength)
	if a.Degraded {
		b.WriteString(f.paint(options, "yellow", "OCR unavailable: analysed plain-text extraction only"))
		b.WriteString("\n")
	}
	if options.Verbose && len(a.Fingerprint.Structure.Sections) > 0 {
		fmt.Fprintf(b, "Sections:    %s\n", strings.Join(a.Fingerprint.Structure.Sections, "; "))
	}

	b.WriteString("\n")
	f.heading(b, options, fmt.Sprintf("Entities (%d)", len(a.Entities)))
	if len(a.Entities) == 0 {
		b.WriteString("No entities found.\n")
	} else {
		b.WriteString(f.paint(options, "white", "%-18s %-6s %-8s %s", "TYPE", "CONF", "SOURCE", "TEXT"))
		b.WriteString("\n")
		for _, e := range a.Entities {
			fmt.Fprintf(b, "%s %s %-8s %s\n",
				f.paint(options, "cyan", "%-18s", truncate(e.EntityType, 18)),
				f.paint(options, "blue", "%6.2f", e.Confidence),
				e.SourceType,
				oneLine(e.Text))
			if options.ShowText && e.Context != "" {
				fmt.Fprintf(b, "    ...%s...\n", oneLine(e.Context))
			}
		}
	}

	if options.Verbose {
		b.WriteString("\n")
		f.heading(b, options, fmt.Sprintf("Patterns (%d)", len(a.Patterns)))
		for _, p := range a.Patterns {
			fmt.Fprintf(b, "%-20s %-12s %6d  %s\n", p.Pattern, p.Category, p.StartPos, oneLine(p.Text))
		}
	}

	b.WriteString("\n")
	f.heading(b, options, "Compliance")
	for _, c := range a.ComplianceChecks {
		fmt.Fprintf(b, "%s %-14s %s\n", f.statusLabel(options, c.Status), c.Regulation, c.Requirement)
		fmt.Fprintf(b, "    %s\n", c.Details)
		if c.Recommendation != "" {
			fmt.Fprintf(b, "    -> %s (%s priority)\n", c.Recommendation, c.Priority)
		}
		if options.Verbose && len(c.References) > 0 {
			fmt.Fprintf(b, "    refs: %s\n", strings.Join(c.References, ", "))
		}
	}

	if options.ShowText && a.TextContent != "" {
		b.WriteString("\n")
		f.heading(b, options, "Text")
		b.WriteString(a.TextContent)
		if !strings.HasSuffix(a.TextContent, "\n") {
			b.WriteString("\n")
		}
	}
}

func (f *Formatter) statusLabel(options formatters.FormatterOptions, s document.ComplianceStatus) string {
	label := fmt.Sprintf("[%-15s]", strings.ToUpper(string(s)))
	switch s {
	case document.StatusCompliant:
		return f.paint(options, "green", "%s", label)
	case document.StatusNonCompliant:
		return f.paint(options, "red", "%s", label)
	default:
		return f.paint(options, "yellow", "%s", label)
	}
}

func (f *Formatter) writeHistory(b *strings.Builder, h *formatters.History, options formatters.FormatterOptions) {
	f.heading(b, options, "History of "+h.DocumentID)
	if len(h.Versions) == 0 && len(h.Branches) == 0 {
		b.WriteString("No versions.\n")
	}
	for _, v := range h.Versions {
		f.writeVersionLine(b, v, options)
	}
	if len(h.Branches) > 0 {
		b.WriteString("\n")
		f.heading(b, options, "Branches")
		for _, br := range h.Branches {
			fmt.Fprintf(b, "%s base=%s current=%s %s\n",
				f.paint(options, "magenta", "%-20s", br.Name), br.BaseVersion, br.CurrentVersion, br.Description)
		}
	}
}

func (f *Formatter) writeVersionLine(b *strings.Builder, v versioning.Version, options formatters.FormatterOptions) {
	author := v.Author
	if author == "" {
		author = "-"
	}
	fmt.Fprintf(b, "%s %s %s %-12s %3d changes",
		f.paint(options, "cyan", "v%-3d", v.Version),
		v.ID,
		v.Timestamp.UTC().Format(time.RFC3339),
		truncate(author, 12),
		len(v.Changes))
	if len(v.Tags) > 0 {
		fmt.Fprintf(b, " [%s]", strings.Join(v.Tags, ", "))
	}
	b.WriteString("\n")
	if options.Verbose && v.Comment != "" {
		fmt.Fprintf(b, "      %s\n", v.Comment)
	}
}

func (f *Formatter) writeDiff(b *strings.Builder, d *versioning.DiffResult, options formatters.FormatterOptions) {
	f.heading(b, options, fmt.Sprintf("%s: %s -> %s", d.DocumentID, d.FromVersion, d.ToVersion))
	s := d.Summary
	fmt.Fprintf(b, "%d changes: %d additions, %d deletions, %d modifications, %d moves\n",
		s.TotalChanges, s.Additions, s.Deletions, s.Modifications, s.Moves)
	fmt.Fprintf(b, "Severity: %s  Confidence: %.2f\n", f.severity(options, s.Severity), s.ConfidenceScore)
	if len(s.ImpactedSections) > 0 {
		fmt.Fprintf(b, "Sections: %s\n", strings.Join(s.ImpactedSections, "; "))
	}

	if len(d.Changes) > 0 {
		b.WriteString("\n")
	}
	for _, c := range d.Changes {
		fmt.Fprintf(b, "%s %-12s %-10s @%d", f.severity(options, c.Severity), c.Type, c.Category, c.Location.Start)
		if c.Location.Section != "" {
			fmt.Fprintf(b, " (%s)", c.Location.Section)
		}
		b.WriteString("\n")
		if c.OldContent != "" {
			fmt.Fprintf(b, "    %s\n", f.paint(options, "red", "- %s", oneLine(c.OldContent)))
		}
		if c.NewContent != "" {
			fmt.Fprintf(b, "    %s\n", f.paint(options, "green", "+ %s", oneLine(c.NewContent)))
		}
	}

	if len(d.Recommendations) > 0 {
		b.WriteString("\n")
		f.heading(b, options, "Recommendations")
		for _, r := range d.Recommendations {
			fmt.Fprintf(b, "* %s\n", r)
		}
	}

	if options.Verbose && d.VisualDiff != nil && d.VisualDiff.Unified != "" {
		b.WriteString("\n")
		b.WriteString(d.VisualDiff.Unified)
	}
}

func (f *Formatter) severity(options formatters.FormatterOptions, s diff.Severity) string {
	label := fmt.Sprintf("%-8s", s)
	switch s {
	case diff.SeverityCritical:
		return f.paint(options, "red", "%s", label)
	case diff.SeverityMajor:
		return f.paint(options, "yellow", "%s", label)
	default:
		return f.paint(options, "green", "%s", label)
	}
}

func (f *Formatter) writeRollback(b *strings.Builder, r *versioning.RollbackResult, options formatters.FormatterOptions) {
	f.heading(b, options, "Rollback")
	if r.Backup != nil {
		b.WriteString("Backup:   ")
		f.writeVersionLine(b, *r.Backup, options)
	}
	b.WriteString("Restored: ")
	f.writeVersionLine(b, r.Restored, options)
	if !r.TextRestored {
		b.WriteString(f.paint(options, "yellow", "Text of the target version was not retained; restored metadata only"))
		b.WriteString("\n")
	}
}

func (f *Formatter) writeBatch(b *strings.Builder, r *formatters.BatchReport, options formatters.FormatterOptions) {
	f.heading(b, options, "Batch")
	for _, res := range r.Results {
		item := formatters.NewBatchItem(res)
		if item.Error != "" {
			fmt.Fprintf(b, "%s %s: %s\n", f.paint(options, "red", "[FAIL]"), item.FilePath, item.Error)
			continue
		}
		fmt.Fprintf(b, "%s %s  %d entities  conf %.2f", f.paint(options, "green", "[ OK ]"), item.FilePath, item.Entities, item.Confidence)
		if item.Version > 0 {
			fmt.Fprintf(b, "  %s v%d", item.DocumentID, item.Version)
		}
		b.WriteString("\n")
	}
	s := r.Stats
	fmt.Fprintf(b, "\n%d files, %d processed, %d failed, %d versioned in %s\n",
		s.TotalFiles, s.ProcessedFiles, s.FailedFiles, s.Versioned, s.TotalDuration.Round(time.Millisecond))
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
