// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package compliance scores documents against regulatory keyword families
// and checks for essential contract clauses.
package compliance

import (
	"fmt"
	"sort"
	"strings"

	"lexscan/internal/document"
	"lexscan/internal/patterns"
)

// Family is a keyword family for one regulation. A document is compliant
// when it has more than Threshold keyword occurrences.
type Family struct {
	Regulation   string
	Requirement  string
	Keywords     []string
	Threshold    int
	Jurisdiction string
	References   []string
}

// EssentialClauses are the clause keywords every contract is expected to have
var EssentialClauses = []string{
	"termination",
	"liability",
	"governing law",
	"dispute resolution",
	"force majeure",
}

// maxMissingClauses is the number of absent essential clauses tolerated
// before a document is non-compliant
const maxMissingClauses = 2

// maxCitedReferences caps statute citations copied into a check
const maxCitedReferences = 5

// DefaultFamilies returns the built-in regulation families
func DefaultFamilies() []Family {
	return []Family{
		{
			Regulation:   "GDPR",
			Requirement:  "Personal data processing safeguards",
			Keywords:     []string{"personal data", "data subject", "data protection", "consent", "data controller", "data processor", "right to erasure"},
			Threshold:    2,
			Jurisdiction: "EU",
			References:   []string{"Regulation (EU) 2016/679"},
		},
		{
			Regulation:   "SOX",
			Requirement:  "Internal controls over financial reporting",
			Keywords:     []string{"internal control", "financial reporting", "audit committee", "material weakness", "certification", "disclosure controls"},
			Threshold:    2,
			Jurisdiction: "US",
			References:   []string{"15 U.S.C. § 7262"},
		},
		{
			Regulation:   "CCPA",
			Requirement:  "Consumer privacy rights",
			Keywords:     []string{"consumer", "opt-out", "do not sell", "personal information", "right to know"},
			Threshold:    1,
			Jurisdiction: "US",
			References:   []string{"Cal. Civ. Code § 1798.100"},
		},
	}
}

// Checker evaluates compliance checks. It is safe for concurrent use.
type Checker struct {
	families []Family
}

// NewChecker creates a Checker. A nil or empty families list uses
// DefaultFamilies.
func NewChecker(families []Family) *Checker {
	if len(families) == 0 {
		families = DefaultFamilies()
	}
	lowered := make([]Family, len(families))
	for i, f := range families {
		f.Keywords = lowerAll(f.Keywords)
		lowered[i] = f
	}
	return &Checker{families: lowered}
}

// Check returns one check per family followed by the essential clause check.
// Keyword matching is case-insensitive and counts every occurrence.
func (c *Checker) Check(text string, entities []document.Entity, matches []document.PatternMatch) []document.ComplianceCheck {
	lower := strings.ToLower(text)
	statutes := statuteCitations(matches)

	checks := make([]document.ComplianceCheck, 0, len(c.families)+1)
	for _, f := range c.families {
		checks = append(checks, c.checkFamily(f, lower, statutes))
	}
	checks = append(checks, checkEssentialClauses(lower, len(entities)))
	return checks
}

func (c *Checker) checkFamily(f Family, lower string, statutes map[string][]string) document.ComplianceCheck {
	total := 0
	var hits []string
	for _, kw := range f.Keywords {
		if n := strings.Count(lower, kw); n > 0 {
			total += n
			hits = append(hits, fmt.Sprintf("%s (%d)", kw, n))
		}
	}

	check := document.ComplianceCheck{
		Regulation:  f.Regulation,
		Requirement: f.Requirement,
		References:  append([]string(nil), f.References...),
	}
	for _, cite := range statutes[f.Jurisdiction] {
		if len(check.References) >= len(f.References)+maxCitedReferences {
			break
		}
		check.References = append(check.References, cite)
	}

	if total > f.Threshold {
		check.Status = document.StatusCompliant
		check.Priority = document.PriorityLow
		check.Details = fmt.Sprintf("%d keyword matches: %s", total, strings.Join(hits, ", "))
		check.Recommendation = fmt.Sprintf("%s coverage looks adequate; confirm during legal review", f.Regulation)
		return check
	}

	check.Status = document.StatusRequiresReview
	check.Priority = document.PriorityMedium
	if total == 0 {
		check.Details = "no keyword matches"
	} else {
		check.Details = fmt.Sprintf("%d keyword matches (need more than %d): %s", total, f.Threshold, strings.Join(hits, ", "))
	}
	check.Recommendation = fmt.Sprintf("Review whether %s obligations apply and add the relevant provisions", f.Regulation)
	return check
}

func checkEssentialClauses(lower string, entityCount int) document.ComplianceCheck {
	var missing []string
	for _, clause := range EssentialClauses {
		if !strings.Contains(lower, clause) {
			missing = append(missing, clause)
		}
	}

	check := document.ComplianceCheck{
		Regulation:  "Contract Law",
		Requirement: "Essential contract clauses",
	}

	if len(missing) > maxMissingClauses {
		check.Status = document.StatusNonCompliant
		check.Priority = document.PriorityHigh
		check.Details = fmt.Sprintf("missing %d of %d essential clauses: %s", len(missing), len(EssentialClauses), strings.Join(missing, ", "))
		check.Recommendation = "Add the missing clauses before execution"
		return check
	}

	check.Status = document.StatusRequiresReview
	check.Priority = document.PriorityMedium
	if len(missing) == 0 {
		check.Details = fmt.Sprintf("all %d essential clauses present; %d entities recognized", len(EssentialClauses), entityCount)
		check.Recommendation = "Confirm clause wording during legal review"
	} else {
		check.Details = fmt.Sprintf("missing %d of %d essential clauses: %s", len(missing), len(EssentialClauses), strings.Join(missing, ", "))
		check.Recommendation = "Consider adding the missing clauses"
	}
	return check
}

// statuteCitations groups distinct statute pattern hits by jurisdiction
func statuteCitations(matches []document.PatternMatch) map[string][]string {
	seen := make(map[string]bool)
	out := make(map[string][]string)
	for _, m := range matches {
		if m.Category != string(patterns.CategoryStatute) || m.Jurisdiction == "" || seen[m.Text] {
			continue
		}
		seen[m.Text] = true
		out[m.Jurisdiction] = append(out[m.Jurisdiction], m.Text)
	}
	for _, cites := range out {
		sort.Strings(cites)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
