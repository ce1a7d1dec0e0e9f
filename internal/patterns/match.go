// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"sort"

	"lexscan/internal/document"
)

// Match runs every pattern over text. Matches of one pattern never overlap;
// matches of different patterns may. Results are ordered by start offset,
// then pattern name.
func (l *Library) Match(text string) []document.PatternMatch {
	var out []document.PatternMatch
	for _, p := range l.patterns {
		for _, loc := range p.Expression.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			out = append(out, document.PatternMatch{
				Pattern:      p.Name,
				Category:     string(p.Category),
				Text:         text[loc[0]:loc[1]],
				StartPos:     loc[0],
				EndPos:       loc[1],
				Confidence:   p.Confidence,
				Jurisdiction: p.Jurisdiction,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartPos != out[j].StartPos {
			return out[i].StartPos < out[j].StartPos
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}
