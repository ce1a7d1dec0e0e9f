// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"context"
	"fmt"

	"lexscan/internal/diff"
)

// Recommendation texts, in priority order
const (
	RecommendCritical    = "Critical changes detected: obtain legal review before approving this version"
	RecommendLegalEntity = "Legal entity references changed: verify party names and corporate details"
	RecommendClause      = "Contract clauses changed: review the affected sections against the prior terms"
	RecommendStructure   = "Document structure changed: confirm that no content was lost or reordered"
	RecommendMinor       = "Only minor changes detected: proceed normally"
)

// CompareVersions reports the changes between two versions. It returns the
// stored changes of whichever version has the higher number, which are
// relative to that version's own predecessor. For non-adjacent versions the
// intermediate changes are not included.
func (s *Store) CompareVersions(ctx context.Context, documentID, fromID, toID string) (DiffResult, error) {
	if err := ctx.Err(); err != nil {
		return DiffResult{}, err
	}
	from, err := s.GetVersion(documentID, fromID)
	if err != nil {
		return DiffResult{}, err
	}
	to, err := s.GetVersion(documentID, toID)
	if err != nil {
		return DiffResult{}, err
	}

	newer := to
	if from.Version > to.Version {
		newer = from
	}
	changes := append([]diff.Change(nil), newer.Changes...)

	result := DiffResult{
		DocumentID:      documentID,
		FromVersion:     fromID,
		ToVersion:       toID,
		Changes:         changes,
		Summary:         Summarize(changes),
		Recommendations: Recommend(changes),
	}

	visual := &VisualDiff{Highlights: make([]Highlight, 0, len(changes))}
	for _, c := range changes {
		visual.Highlights = append(visual.Highlights, Highlight{
			Start:    c.Location.Start,
			End:      c.Location.End,
			Page:     c.Location.Page,
			Section:  c.Location.Section,
			Type:     c.Type,
			Severity: c.Severity,
		})
	}
	unified, err := diff.RenderChanges(fmt.Sprintf("%s@v%d", documentID, newer.Version), changes)
	if err != nil {
		s.log.Warn().Err(err).Str("document_id", documentID).Msg("failed to render unified diff")
	}
	visual.Unified = unified
	result.VisualDiff = visual

	return result, nil
}

// Summarize counts changes by type and aggregates severity, confidence and
// impacted sections
func Summarize(changes []diff.Change) DiffSummary {
	sum := DiffSummary{
		TotalChanges:     len(changes),
		Severity:         diff.SeverityMinor,
		ImpactedSections: []string{},
	}
	if len(changes) == 0 {
		return sum
	}

	seen := make(map[string]bool)
	total := 0.0
	for _, c := range changes {
		switch c.Type {
		case diff.ChangeAddition:
			sum.Additions++
		case diff.ChangeDeletion:
			sum.Deletions++
		case diff.ChangeModification:
			sum.Modifications++
		case diff.ChangeMove:
			sum.Moves++
		}
		if c.Severity.Rank() > sum.Severity.Rank() {
			sum.Severity = c.Severity
		}
		total += c.Confidence
		if sec := c.Location.Section; sec != "" && !seen[sec] {
			seen[sec] = true
			sum.ImpactedSections = append(sum.ImpactedSections, sec)
		}
	}
	sum.ConfidenceScore = total / float64(len(changes))
	return sum
}

// Recommend lists the warnings that apply to changes, most urgent first
func Recommend(changes []diff.Change) []string {
	var critical, entity, clause, structure bool
	for _, c := range changes {
		if c.Severity == diff.SeverityCritical {
			critical = true
		}
		switch c.Category {
		case diff.CategoryLegalEntity:
			entity = true
		case diff.CategoryClause:
			clause = true
		case diff.CategoryStructure:
			structure = true
		}
	}

	var out []string
	if critical {
		out = append(out, RecommendCritical)
	}
	if entity {
		out = append(out, RecommendLegalEntity)
	}
	if clause {
		out = append(out, RecommendClause)
	}
	if structure {
		out = append(out, RecommendStructure)
	}
	if len(out) == 0 {
		out = append(out, RecommendMinor)
	}
	return out
}
