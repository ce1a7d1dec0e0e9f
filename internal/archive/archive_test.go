// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"testing"

	"lexscan/internal/document"
	"lexscan/internal/fingerprint"
	"lexscan/internal/versioning"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(Config{InMemory: true, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func analysisOf(text string) *document.Analysis {
	return &document.Analysis{TextContent: text, Fingerprint: fingerprint.Seal(document.Fingerprint{}, text, 1)}
}

func TestSaveLoadDelete(t *testing.T) {
	a := openMemory(t)

	require.NoError(t, a.Save("doc1", []byte("one")))
	require.NoError(t, a.Save("doc2", []byte("two")))

	data, err := a.Load("doc1")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	ids, err := a.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2"}, ids)

	require.NoError(t, a.Delete("doc1"))
	_, err = a.Load("doc1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncAndRestore(t *testing.T) {
	ctx := context.Background()
	a := openMemory(t)

	src := versioning.NewStore()
	for _, doc := range []string{"lease", "nda"} {
		_, err := src.CreateVersion(ctx, doc, analysisOf(doc+" v1"), versioning.CreateOptions{})
		require.NoError(t, err)
		_, err = src.CreateVersion(ctx, doc, analysisOf(doc+" v2"), versioning.CreateOptions{CompareWithPrevious: true})
		require.NoError(t, err)
	}
	require.NoError(t, a.Sync(ctx, src))

	require.NoError(t, a.Save("broken", []byte("versions: [")))

	dst := versioning.NewStore()
	n, err := a.Restore(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"lease", "nda"}, dst.Documents())

	history, err := dst.GetVersionHistory("nda")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[1].Version)
	assert.Equal(t, "nda v2", history[1].Text)

	v3, err := dst.CreateVersion(ctx, "nda", analysisOf("nda v3"), versioning.CreateOptions{CompareWithPrevious: true})
	require.NoError(t, err)
	require.NotEmpty(t, v3.Changes)
	assert.Equal(t, "nda v2", v3.Changes[len(v3.Changes)-1].OldContent)
}

func TestRestoreKeepsEmptyText(t *testing.T) {
	ctx := context.Background()
	a := openMemory(t)

	src := versioning.NewStore()
	_, err := src.CreateVersion(ctx, "scan", analysisOf(""), versioning.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, a.Sync(ctx, src))

	dst := versioning.NewStore()
	_, err = a.Restore(ctx, dst)
	require.NoError(t, err)
	head, err := dst.GetLatestVersion("scan")
	require.NoError(t, err)
	assert.True(t, head.TextRetained())

	v2, err := dst.CreateVersion(ctx, "scan", analysisOf("Termination on notice"), versioning.CreateOptions{CompareWithPrevious: true})
	require.NoError(t, err)
	require.NotEmpty(t, v2.Changes)
	assert.Equal(t, "Termination on notice", v2.Changes[len(v2.Changes)-1].NewContent)
}

func TestSaveTextsReplacesStale(t *testing.T) {
	a := openMemory(t)

	require.NoError(t, a.SaveTexts("lease", map[string]string{"a": "one", "b": "two"}))
	require.NoError(t, a.SaveTexts("lease/amendment", map[string]string{"c": "three"}))
	require.NoError(t, a.SaveTexts("lease", map[string]string{"b": "two", "d": "four"}))

	texts, err := a.LoadTexts("lease")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "two", "d": "four"}, texts)

	require.NoError(t, a.Save("lease", []byte("x")))
	require.NoError(t, a.Delete("lease"))
	texts, err = a.LoadTexts("lease")
	require.NoError(t, err)
	assert.Empty(t, texts)

	texts, err = a.LoadTexts("lease/amendment")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "three"}, texts)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(Config{Path: dir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, a.Save("doc", []byte("persisted")))
	require.NoError(t, a.Close())

	b, err := Open(Config{Path: dir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer b.Close()
	data, err := b.Load("doc")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(data))
}
