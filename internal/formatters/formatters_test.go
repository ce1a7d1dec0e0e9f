// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"lexscan/internal/batch"
	"lexscan/internal/diff"
	"lexscan/internal/document"
	"lexscan/internal/formatters"
	_ "lexscan/internal/formatters/csv"
	_ "lexscan/internal/formatters/json"
	_ "lexscan/internal/formatters/text"
	_ "lexscan/internal/formatters/yaml"
	"lexscan/internal/versioning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var plain = formatters.FormatterOptions{NoColor: true}

func sampleAnalysis() *document.Analysis {
	return &document.Analysis{
		ID:          "an-1",
		FilePath:    "/docs/lease.txt",
		TextContent: "The Lessee shall pay $1,200.00 monthly.",
		Fingerprint: document.Fingerprint{
			Hash:      "0123456789abcdef0123456789abcdef",
			Structure: document.Structure{PageCount: 1, WordCount: 6, ParagraphCount: 1},
		},
		Entities: []document.Entity{{
			EntityType: "monetary",
			Text:       "$1,200.00",
			Confidence: 0.9,
			StartPos:   21,
			EndPos:     30,
			Context:    "The Lessee shall pay $1,200.00 monthly.",
			SourceType: document.SourceText,
		}},
		Patterns: []document.PatternMatch{{Pattern: "dollar_amount", Category: "monetary", Text: "$1,200.00", StartPos: 21, EndPos: 30, Confidence: 0.9}},
		ComplianceChecks: []document.ComplianceCheck{{
			Regulation:  "Contract Law",
			Requirement: "Essential contract clauses",
			Status:      document.StatusNonCompliant,
			Details:     "Missing clauses: termination, liability, governing law",
			Priority:    document.PriorityHigh,
		}},
		Insights: document.Insights{SentenceCount: 1, Complexity: document.ComplexityLow, DocumentType: "contract"},
		Metadata: document.AnalysisMetadata{Confidence: 0.9},
	}
}

func sampleDiff() *versioning.DiffResult {
	return &versioning.DiffResult{
		DocumentID:  "lease",
		FromVersion: "v1",
		ToVersion:   "v2",
		Changes: []diff.Change{{
			Type:       diff.ChangeModification,
			Location:   diff.Location{Start: 0, End: 12, Section: "Section 1 Rent"},
			OldContent: "Rent is $100",
			NewContent: "=Rent is $900",
			Severity:   diff.SeverityCritical,
			Category:   diff.CategoryClause,
			Confidence: 0.8,
		}},
		Summary:         versioning.DiffSummary{TotalChanges: 1, Modifications: 1, Severity: diff.SeverityCritical, ConfidenceScore: 0.8},
		Recommendations: []string{versioning.RecommendCritical},
	}
}

func TestRegistryListsFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "text", "yaml"}, formatters.List())

	info := formatters.GetFormatInfo("yaml")
	assert.Equal(t, "application/x-yaml", info.MimeType)
	assert.Equal(t, ".yaml", info.Extension)
	assert.Len(t, formatters.GetSupportedFormats(), 4)
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := formatters.Export("sarif", formatters.Report{Analysis: sampleAnalysis()}, plain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv, json, text, yaml")
}

func TestEmptyReport(t *testing.T) {
	for _, name := range formatters.List() {
		_, err := formatters.Export(name, formatters.Report{}, plain)
		assert.True(t, errors.Is(err, formatters.ErrEmptyReport), name)
	}
}

func TestJSONHidesTextUnlessRequested(t *testing.T) {
	out, err := formatters.Export("json", formatters.Report{Analysis: sampleAnalysis()}, plain)
	require.NoError(t, err)

	var got document.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Empty(t, got.TextContent)
	assert.Empty(t, got.Entities[0].Context)
	assert.Equal(t, "$1,200.00", got.Entities[0].Text)

	out, err = formatters.Export("json", formatters.Report{Analysis: sampleAnalysis()}, formatters.FormatterOptions{ShowText: true})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "The Lessee shall pay $1,200.00 monthly.", got.TextContent)
}

func TestYAMLMatchesJSONKeys(t *testing.T) {
	out, err := formatters.Export("yaml", formatters.Report{Diff: sampleDiff()}, plain)
	require.NoError(t, err)
	assert.NotContains(t, out, "{")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "lease", got["document_id"])
	changes := got["changes"].([]any)
	first := changes[0].(map[string]any)
	assert.Equal(t, "critical", first["severity"])
	assert.Equal(t, "=Rent is $900", first["new_content"])
}

func TestTextAnalysis(t *testing.T) {
	out, err := formatters.Export("text", formatters.Report{Analysis: sampleAnalysis()}, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Document Analysis ===")
	assert.Contains(t, out, "Hash:        0123456789abcdef\n")
	assert.Contains(t, out, "=== Entities (1) ===")
	assert.Contains(t, out, "$1,200.00")
	assert.Contains(t, out, "[NON_COMPLIANT  ] Contract Law")
	assert.NotContains(t, out, "=== Patterns")
	assert.NotContains(t, out, "\x1b[")

	verbose, err := formatters.Export("text", formatters.Report{Analysis: sampleAnalysis()}, formatters.FormatterOptions{NoColor: true, Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, verbose, "=== Patterns (1) ===")
}

func TestTextDiffAndRollback(t *testing.T) {
	out, err := formatters.Export("text", formatters.Report{Diff: sampleDiff()}, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "1 changes: 0 additions, 0 deletions, 1 modifications, 0 moves")
	assert.Contains(t, out, "- Rent is $100")
	assert.Contains(t, out, "+ =Rent is $900")
	assert.Contains(t, out, "* "+versioning.RecommendCritical)

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rb := &versioning.RollbackResult{
		Restored: versioning.Version{ID: "v3", Version: 3, Timestamp: ts, Tags: []string{versioning.TagRollback}},
	}
	out, err = formatters.Export("text", formatters.Report{Rollback: rb}, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored: v3   v3 2026-03-01T09:00:00Z")
	assert.Contains(t, out, "not retained")
}

func TestCSVEscapesAndSanitizes(t *testing.T) {
	out, err := formatters.Export("csv", formatters.Report{Diff: sampleDiff()}, plain)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Type,Severity,Category,Start,End,Section,Old,New,Confidence", lines[0])
	assert.Equal(t, "modification,critical,clause,0,12,Section 1 Rent,Rent is $100,'=Rent is $900,0.80", lines[1])
}

func TestBatchReports(t *testing.T) {
	report := formatters.Report{Batch: &formatters.BatchReport{
		Results: []batch.Result{
			{FilePath: "a.txt", JobID: "j1", DocumentID: "a", Analysis: sampleAnalysis(), Version: &versioning.Version{Version: 2}, Duration: 15 * time.Millisecond},
			{FilePath: "b, c.pdf", JobID: "j2", Err: errors.New("unsupported format")},
		},
		Stats: batch.Stats{TotalFiles: 2, ProcessedFiles: 1, FailedFiles: 1, Versioned: 1},
	}}

	out, err := formatters.Export("text", report, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] a.txt  1 entities  conf 0.90  a v2")
	assert.Contains(t, out, "[FAIL] b, c.pdf: unsupported format")
	assert.Contains(t, out, "2 files, 1 processed, 1 failed, 1 versioned")

	out, err = formatters.Export("csv", report, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt,j1,a,2,1,0.90,15,\n")
	assert.Contains(t, out, "\"b, c.pdf\",j2,,,0,0.00,0,unsupported format\n")

	out, err = formatters.Export("json", report, plain)
	require.NoError(t, err)
	var payload formatters.BatchPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "unsupported format", payload.Results[1].Error)
	assert.Equal(t, 2, payload.Results[0].Version)
}

func TestHistoryText(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := &formatters.History{
		DocumentID: "nda",
		Versions: []versioning.Version{
			{ID: "v1", Version: 1, Timestamp: ts, Author: "alice"},
			{ID: "v2", Version: 2, Timestamp: ts, Author: "bob", Tags: []string{"signed"}, Changes: make([]diff.Change, 2)},
		},
		Branches: []versioning.Branch{{Name: "redline", BaseVersion: "v1", CurrentVersion: "v1"}},
	}
	out, err := formatters.Export("text", formatters.Report{History: h}, plain)
	require.NoError(t, err)
	assert.Contains(t, out, "=== History of nda ===")
	assert.Contains(t, out, "v2   v2 2026-01-02T03:04:05Z bob            2 changes [signed]")
	assert.Contains(t, out, "redline")

	_, _, name, err := formatters.ExportForWeb("csv", formatters.Report{History: h}, plain)
	require.NoError(t, err)
	assert.Equal(t, "lexscan-history.csv", name)
}
