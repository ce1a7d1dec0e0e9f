// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package diff

import "strings"

// Severity ranks how much a change matters legally
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so callers can take a maximum
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// Category is the subject area a change touches
type Category string

const (
	CategoryText        Category = "text"
	CategoryStructure   Category = "structure"
	CategoryMetadata    Category = "metadata"
	CategoryLegalEntity Category = "legal_entity"
	CategoryClause      Category = "clause"
)

// CriticalTerms flag a change as critical regardless of its size
var CriticalTerms = []string{
	"liability",
	"termination",
	"breach",
	"penalty",
	"damages",
	"governing law",
	"jurisdiction",
	"arbitration",
	"force majeure",
	"indemnity",
}

const (
	// majorWordRatio is the changed-word ratio above which a change is major
	majorWordRatio = 0.5
	// majorWordTotal is the combined word count above which a change is major
	majorWordTotal = 50
)

// categoryFamilies is evaluated in order; the first family with a hit wins
var categoryFamilies = []struct {
	category Category
	keywords []string
}{
	{CategoryLegalEntity, []string{"corp.", "inc.", "llc", "ltd.", "company"}},
	{CategoryClause, []string{"section", "article", "clause", "whereas", "shall", "agreement", "hereby", "party", "parties"}},
	{CategoryStructure, []string{"page", "title", "header", "table", "list"}},
	{CategoryMetadata, []string{"date", "version", "author", "status"}},
}

// ClassifySeverity grades a change from its old and new content
func ClassifySeverity(oldContent, newContent string) Severity {
	if containsCriticalTerm(oldContent) || containsCriticalTerm(newContent) {
		return SeverityCritical
	}

	oldWords := len(strings.Fields(oldContent))
	newWords := len(strings.Fields(newContent))

	denom := max(oldWords, newWords, 1)
	ratio := float64(abs(oldWords-newWords)) / float64(denom)

	if ratio > majorWordRatio || oldWords+newWords > majorWordTotal {
		return SeverityMajor
	}
	return SeverityMinor
}

// ClassifyCategory picks the first keyword family found in content
func ClassifyCategory(content string) Category {
	lower := strings.ToLower(content)
	for _, fam := range categoryFamilies {
		for _, kw := range fam.keywords {
			if strings.Contains(lower, kw) {
				return fam.category
			}
		}
	}
	return CategoryText
}

func containsCriticalTerm(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	for _, term := range CriticalTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
