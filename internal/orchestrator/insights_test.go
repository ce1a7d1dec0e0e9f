// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"strings"
	"testing"

	"lexscan/internal/document"

	"github.com/stretchr/testify/assert"
)

func TestComputeInsightsComplexity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want document.Complexity
	}{
		{"short sentences", "Short one. Tiny two.", document.ComplexityLow},
		{"medium sentences", "This sentence has twenty. Another with twenty chars!", document.ComplexityMedium},
		{"long sentences", strings.Repeat("word ", 10) + "end.", document.ComplexityHigh},
		{"empty", "", document.ComplexityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeInsights(tt.text).Complexity)
		})
	}
}

func TestComputeInsightsCounts(t *testing.T) {
	in := ComputeInsights("First sentence here. Second one!\n\nThird? Yes.")
	assert.Equal(t, 2, in.ParagraphCount)
	assert.Equal(t, 4, in.SentenceCount)
}

func TestComputeInsightsDocumentType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"This Agreement binds the parties. Each party shall perform.", "contract"},
		{"Plaintiff respectfully submits this motion. Defendant opposes the motion.", "brief"},
		{"The court held that the judgment is affirmed. Judge Lee wrote a dissent.", "opinion"},
		{"This chapter was enacted in 1990 and amended by subsection (b).", "statute"},
		{"Nothing relevant appears in this text at all.", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeInsights(tt.text).DocumentType)
		})
	}
}
