// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"regexp"
	"strings"

	"lexscan/internal/document"
)

// ChangeType is the kind of delta between two document states
type ChangeType string

const (
	ChangeAddition     ChangeType = "addition"
	ChangeDeletion     ChangeType = "deletion"
	ChangeModification ChangeType = "modification"
	ChangeMove         ChangeType = "move"
)

// Location places a change in the old text. Page and Line are 0 when
// unknown; Line is 1-based.
type Location struct {
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Page    int    `json:"page,omitempty" yaml:"page,omitempty"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
}

// Change is one classified delta
type Change struct {
	Type       ChangeType `json:"type" yaml:"type"`
	Location   Location   `json:"location" yaml:"location"`
	OldContent string     `json:"old_content,omitempty" yaml:"old_content,omitempty"`
	NewContent string     `json:"new_content,omitempty" yaml:"new_content,omitempty"`
	Severity   Severity   `json:"severity" yaml:"severity"`
	Category   Category   `json:"category" yaml:"category"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

const (
	// exactConfidence applies to runs the walker aligned on identical lines
	exactConfidence = 1.0
	// pairedConfidence applies to replace runs, whose pairing is a guess
	pairedConfidence = 0.8
	// structuralChangeRatio is the word-count change above which a
	// fingerprint delta is major
	structuralChangeRatio = 0.10
	// pageSeparator is the form feed extractors put between pages
	pageSeparator = "\f"
)

var sectionHeading = regexp.MustCompile(`^\s*(?i:section|article)\s+[0-9IVXLC]+(?:\.[0-9]+)*\b.*`)

// Compare diffs two texts and classifies every non-equal run
func Compare(oldText, newText string) []Change {
	return Changes(DiffLines(oldText, newText), strings.Split(oldText, "\n"))
}

// Changes converts diff operations into classified changes. oldLines is the
// old text split on newlines and is used to locate the enclosing section and
// page of each run.
func Changes(ops []Op, oldLines []string) []Change {
	var changes []Change
	for _, op := range ops {
		if op.Kind == OpEqual {
			continue
		}

		oldContent := strings.Join(op.OldLines, "\n")
		newContent := strings.Join(op.NewLines, "\n")

		c := Change{
			Location: Location{
				Start:   op.Offset,
				End:     op.Offset + len(oldContent),
				Line:    op.OldIndex + 1,
				Page:    pageAt(oldLines, op.OldIndex),
				Section: sectionAt(oldLines, op.OldIndex),
			},
			OldContent: oldContent,
			NewContent: newContent,
			Severity:   ClassifySeverity(oldContent, newContent),
			Category:   ClassifyCategory(oldContent + "\n" + newContent),
			Confidence: exactConfidence,
		}

		switch op.Kind {
		case OpInsert:
			c.Type = ChangeAddition
			c.Location.End = op.Offset
		case OpDelete:
			c.Type = ChangeDeletion
		case OpReplace:
			c.Type = ChangeModification
			c.Confidence = pairedConfidence
		}

		changes = append(changes, c)
	}
	return changes
}

// FingerprintChanges reports page and word count deltas between two
// fingerprints as modification changes.
func FingerprintChanges(prev, cur document.Fingerprint) []Change {
	severity := SeverityMinor
	if wordChangeRatio(prev.Structure.WordCount, cur.Structure.WordCount) > structuralChangeRatio {
		severity = SeverityMajor
	}

	var changes []Change
	if prev.Structure.PageCount != cur.Structure.PageCount {
		changes = append(changes, Change{
			Type:       ChangeModification,
			OldContent: fmt.Sprintf("page count: %d", prev.Structure.PageCount),
			NewContent: fmt.Sprintf("page count: %d", cur.Structure.PageCount),
			Severity:   severity,
			Category:   CategoryStructure,
			Confidence: exactConfidence,
		})
	}
	if prev.Structure.WordCount != cur.Structure.WordCount {
		changes = append(changes, Change{
			Type:       ChangeModification,
			OldContent: fmt.Sprintf("word count: %d", prev.Structure.WordCount),
			NewContent: fmt.Sprintf("word count: %d", cur.Structure.WordCount),
			Severity:   severity,
			Category:   CategoryText,
			Confidence: exactConfidence,
		})
	}
	return changes
}

func wordChangeRatio(prev, cur int) float64 {
	if prev == cur {
		return 0
	}
	if prev == 0 {
		return 1
	}
	return float64(abs(cur-prev)) / float64(prev)
}

// sectionAt returns the nearest heading at or above line idx
func sectionAt(lines []string, idx int) string {
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	for i := idx; i >= 0; i-- {
		if sectionHeading.MatchString(lines[i]) {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}

// pageAt counts page separators up to and including line idx, since
// extractors start each new page with one; 0 means the text has none
func pageAt(lines []string, idx int) int {
	seen := false
	page := 1
	for i := 0; i < len(lines); i++ {
		n := strings.Count(lines[i], pageSeparator)
		if n > 0 {
			seen = true
		}
		if i <= idx {
			page += n
		}
	}
	if !seen {
		return 0
	}
	return page
}
