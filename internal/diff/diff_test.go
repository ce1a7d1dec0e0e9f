// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"math/rand"
	"strings"
	"testing"

	"lexscan/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(ops []Op) []OpKind {
	out := make([]OpKind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func TestDiffLines(t *testing.T) {
	tests := []struct {
		name      string
		old, new  string
		wantKinds []OpKind
	}{
		{"identical", "a\nb\nc", "a\nb\nc", []OpKind{OpEqual}},
		{"both empty", "", "", []OpKind{OpEqual}},
		{"deleted line", "a\nb\nc", "a\nc", []OpKind{OpEqual, OpDelete, OpEqual}},
		{"inserted line", "a\nc", "a\nb\nc", []OpKind{OpEqual, OpInsert, OpEqual}},
		{"replaced line", "a\nx\nc", "a\ny\nc", []OpKind{OpEqual, OpReplace, OpEqual}},
		{"trailing delete", "a\nb\nc", "a", []OpKind{OpEqual, OpDelete}},
		{"trailing insert", "a", "a\nb\nc", []OpKind{OpEqual, OpInsert}},
		{"resync within lookahead", "x\n1\nT", "T", []OpKind{OpDelete, OpEqual}},
		{"resync beyond lookahead falls back to replace", "x\n1\n2\n3\n4\n5\n6\nT", "T", []OpKind{OpReplace, OpDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKinds, kinds(DiffLines(tt.old, tt.new)))
		})
	}
}

func TestDiffLinesOffsets(t *testing.T) {
	t.Run("delete consumes old text", func(t *testing.T) {
		ops := DiffLines("aa\nbbb\ncc", "aa\ncc")
		require.Len(t, ops, 3)
		assert.Equal(t, 0, ops[0].Offset)
		assert.Equal(t, 3, ops[1].Offset)
		assert.Equal(t, 7, ops[2].Offset)
	})

	t.Run("insert does not advance offset", func(t *testing.T) {
		ops := DiffLines("aa\ncc", "aa\nbbb\ncc")
		require.Len(t, ops, 3)
		assert.Equal(t, OpInsert, ops[1].Kind)
		assert.Equal(t, 3, ops[1].Offset)
		assert.Equal(t, 3, ops[2].Offset)
	})

	t.Run("replace advances by old line", func(t *testing.T) {
		ops := DiffLines("aa\nxxxx\ncc", "aa\ny\ncc")
		require.Len(t, ops, 3)
		assert.Equal(t, 3, ops[1].Offset)
		assert.Equal(t, 8, ops[2].Offset)
	})
}

func randomText(r *rand.Rand) string {
	alphabet := []string{"a", "b", "c", "d", "", "Section 1. Terms"}
	lines := make([]string, r.Intn(9))
	for i := range lines {
		lines[i] = alphabet[r.Intn(len(alphabet))]
	}
	return strings.Join(lines, "\n")
}

func TestDiffLinesReconstruction(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	checked := 0
	for n := 0; n < 5000; n++ {
		oldText, newText := randomText(r), randomText(r)
		if n%3 == 0 {
			newText = oldText + "\n" + randomText(r)
		}
		ops := DiffLines(oldText, newText)

		var oldLines, newLines []string
		replaced := false
		for _, op := range ops {
			switch op.Kind {
			case OpEqual:
				oldLines = append(oldLines, op.OldLines...)
				newLines = append(newLines, op.NewLines...)
			case OpDelete:
				oldLines = append(oldLines, op.OldLines...)
			case OpInsert:
				newLines = append(newLines, op.NewLines...)
			case OpReplace:
				replaced = true
				oldLines = append(oldLines, op.OldLines...)
				newLines = append(newLines, op.NewLines...)
			}
		}

		// replace runs pair one old line with one new line, so the texts
		// still rebuild with them included
		require.Equal(t, oldText, strings.Join(oldLines, "\n"), "old %q new %q", oldText, newText)
		require.Equal(t, newText, strings.Join(newLines, "\n"), "old %q new %q", oldText, newText)
		if !replaced {
			checked++
		}
	}
	assert.Greater(t, checked, 1000, "too few replace-free cases generated")
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     Severity
	}{
		{"indemnity lower", "", "the indemnity cap", SeverityCritical},
		{"indemnity mixed case", "INDEMNITY applies", "", SeverityCritical},
		{"multi word term", "under the Governing Law of Delaware", "x", SeverityCritical},
		{"small edit", "the quick brown fox", "the quick red fox", SeverityMinor},
		{"ratio above half", "one", "one two three", SeverityMajor},
		{"large block", strings.Repeat("word ", 30), strings.Repeat("word ", 30), SeverityMajor},
		{"empty both", "", "", SeverityMinor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.old, tt.new))
		})
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		content string
		want    Category
	}{
		{"Acme Corp. shall deliver", CategoryLegalEntity},
		{"Section 4 shall survive", CategoryClause},
		{"see the table below", CategoryStructure},
		{"effective date moved", CategoryMetadata},
		{"the quick brown fox", CategoryText},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCategory(tt.content))
		})
	}
}

func TestCompare(t *testing.T) {
	old := "Section 1. Payment\nfee is due monthly\nnotes"
	cur := "Section 1. Payment\nfee is due weekly\nnotes"

	changes := Compare(old, cur)
	require.Len(t, changes, 1)

	c := changes[0]
	assert.Equal(t, ChangeModification, c.Type)
	assert.Equal(t, "fee is due monthly", c.OldContent)
	assert.Equal(t, "fee is due weekly", c.NewContent)
	assert.Equal(t, "Section 1. Payment", c.Location.Section)
	assert.Equal(t, 2, c.Location.Line)
	assert.Equal(t, 19, c.Location.Start)
	assert.Equal(t, 19+len("fee is due monthly"), c.Location.End)
	assert.Equal(t, 0, c.Location.Page)
	assert.Equal(t, SeverityMinor, c.Severity)
	assert.Equal(t, CategoryText, c.Category)
}

func TestCompareIdenticalHasNoChanges(t *testing.T) {
	assert.Empty(t, Compare("same\ntext", "same\ntext"))
	assert.Empty(t, Compare("", ""))
}

func TestCompareTracksPages(t *testing.T) {
	old := "first page\n\fsecond page\nclause text"
	cur := "first page\n\fsecond page\nclause words"

	changes := Compare(old, cur)
	require.Len(t, changes, 1)
	assert.Equal(t, 2, changes[0].Location.Page)
}

func TestFingerprintChanges(t *testing.T) {
	fp := func(pages, words int) document.Fingerprint {
		return document.Fingerprint{Structure: document.Structure{PageCount: pages, WordCount: words}}
	}

	t.Run("word count grows thirty percent", func(t *testing.T) {
		changes := FingerprintChanges(fp(0, 100), fp(0, 130))
		require.Len(t, changes, 1)
		assert.Equal(t, ChangeModification, changes[0].Type)
		assert.Equal(t, CategoryText, changes[0].Category)
		assert.Equal(t, SeverityMajor, changes[0].Severity)
	})

	t.Run("small word change is minor", func(t *testing.T) {
		changes := FingerprintChanges(fp(2, 100), fp(2, 105))
		require.Len(t, changes, 1)
		assert.Equal(t, SeverityMinor, changes[0].Severity)
	})

	t.Run("page change is structural", func(t *testing.T) {
		changes := FingerprintChanges(fp(2, 100), fp(3, 100))
		require.Len(t, changes, 1)
		assert.Equal(t, CategoryStructure, changes[0].Category)
		assert.Equal(t, SeverityMinor, changes[0].Severity)
	})

	t.Run("unchanged", func(t *testing.T) {
		assert.Empty(t, FingerprintChanges(fp(1, 10), fp(1, 10)))
	})
}

func TestRenderUnified(t *testing.T) {
	out, err := RenderUnified("doc.txt", DiffLines("a\nx\nc", "a\ny\nc"))
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/doc.txt")
	assert.Contains(t, out, "+++ b/doc.txt")
	assert.Contains(t, out, "@@ -2,1 +2,1 @@")
	assert.Contains(t, out, "-x\n")
	assert.Contains(t, out, "+y\n")

	empty, err := RenderUnified("doc.txt", DiffLines("same", "same"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRenderChangesMatchesRenderUnified(t *testing.T) {
	old := "a\nb\nx\nc\nd"
	cur := "a\nnew\nb\ny\nc"

	fromOps, err := RenderUnified("doc.txt", DiffLines(old, cur))
	require.NoError(t, err)

	changes := Compare(old, cur)
	changes = append(changes, FingerprintChanges(document.Fingerprint{}, document.Fingerprint{Structure: document.Structure{WordCount: 5}})...)
	fromChanges, err := RenderChanges("doc.txt", changes)
	require.NoError(t, err)

	assert.Equal(t, fromOps, fromChanges)
	assert.Contains(t, fromChanges, "+new\n")
}
