// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lexscan/internal/document"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIsContentDerived(t *testing.T) {
	a := Hash("This Agreement  is made\n\nbetween the parties.")
	b := Hash("this agreement is made between the parties.")
	c := Hash("this agreement is made between other parties.")

	assert.Equal(t, a, b, "whitespace and case must not change the hash")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSeal(t *testing.T) {
	text := "ARTICLE I Definitions\nTerms used here.\n\nSection 2.1 Payment\nFees are due.\n\n3. TERMINATION\nEither party may end it."
	fp := Seal(document.Fingerprint{}, text, 2)

	assert.Equal(t, Hash(text), fp.Hash)
	assert.Equal(t, 2, fp.Structure.PageCount)
	assert.Equal(t, 3, fp.Structure.ParagraphCount)
	assert.Equal(t, []string{"ARTICLE I Definitions", "Section 2.1 Payment", "3. TERMINATION"}, fp.Structure.Sections)
	assert.Equal(t, 19, fp.Structure.WordCount)
}

func TestSealKeepsMetadataPageCount(t *testing.T) {
	fp := Seal(document.Fingerprint{Structure: document.Structure{PageCount: 7}}, "text", 1)
	assert.Equal(t, 7, fp.Structure.PageCount)
}

func TestCreateFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(path, []byte("memo"), 0600))

	fp, err := New(zerolog.Nop()).CreateFingerprint(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, fp.Hash)
	assert.False(t, fp.Metadata.Modified.IsZero())
	assert.Zero(t, fp.Structure.WordCount)
}

func TestCreateFingerprintErrors(t *testing.T) {
	f := New(zerolog.Nop())

	_, err := f.CreateFingerprint(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	_, err = f.CreateFingerprint(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestCreateFingerprintToleratesBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 not really"), 0600))

	fp, err := New(zerolog.Nop()).CreateFingerprint(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, fp.Structure.PageCount)
}
