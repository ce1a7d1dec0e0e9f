// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"context"
	"testing"
	"time"

	"lexscan/internal/diff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackWithBackup(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	v1, err := s.CreateVersion(ctx, "doc1", analysisOf("original terms"), CreateOptions{})
	require.NoError(t, err)
	v2, err := s.CreateVersion(ctx, "doc1", analysisOf("amended terms"), CreateOptions{CompareWithPrevious: true})
	require.NoError(t, err)

	res, err := s.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{CreateBackup: true, ValidateIntegrity: true, Author: "ana"})
	require.NoError(t, err)

	require.NotNil(t, res.Backup)
	assert.Equal(t, 3, res.Backup.Version)
	assert.Equal(t, []string{TagBackup, TagRollback}, res.Backup.Tags)
	assert.Equal(t, v2.Fingerprint, res.Backup.Fingerprint)

	v4 := res.Restored
	assert.Equal(t, 4, v4.Version)
	assert.Equal(t, []string{TagRollback}, v4.Tags)
	assert.Equal(t, v1.Fingerprint, v4.Fingerprint)
	assert.Equal(t, res.Backup.ID, v4.ParentVersion)
	assert.Equal(t, "ana", v4.Author)
	assert.True(t, res.TextRestored)
	require.Len(t, v4.Changes, 1)
	assert.Equal(t, diff.ChangeModification, v4.Changes[0].Type)
	assert.Equal(t, diff.SeverityMajor, v4.Changes[0].Severity)
	assert.Equal(t, diff.CategoryMetadata, v4.Changes[0].Category)

	history, err := s.GetVersionHistory("doc1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "amended terms", history[2].Text)
	assert.Equal(t, "original terms", history[3].Text)

	// the next diff runs against the restored text
	v5, err := s.CreateVersion(ctx, "doc1", analysisOf("original terms"), CreateOptions{CompareWithPrevious: true})
	require.NoError(t, err)
	assert.Empty(t, v5.Changes)
}

func TestRollbackWithoutBackup(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	v1, err := s.CreateVersion(ctx, "doc1", analysisOf("one"), CreateOptions{})
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, "doc1", analysisOf("two"), CreateOptions{})
	require.NoError(t, err)

	res, err := s.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Backup)
	assert.Equal(t, 3, res.Restored.Version)
	assert.Equal(t, "Rollback to version 1", res.Restored.Comment)
}

func TestRollbackIntegrityFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing hash", func(t *testing.T) {
		s, _ := newTestStore()
		a := analysisOf("text")
		a.Fingerprint.Hash = ""
		v1, err := s.CreateVersion(ctx, "doc1", a, CreateOptions{})
		require.NoError(t, err)
		_, err = s.CreateVersion(ctx, "doc1", analysisOf("later"), CreateOptions{})
		require.NoError(t, err)

		_, err = s.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{CreateBackup: true, ValidateIntegrity: true})
		assert.ErrorIs(t, err, ErrIntegrityCheckFailed)

		history, err := s.GetVersionHistory("doc1")
		require.NoError(t, err)
		assert.Len(t, history, 2, "a failed rollback appends nothing")
	})

	t.Run("future timestamp", func(t *testing.T) {
		s, clk := newTestStore()
		clk.Set(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
		v1, err := s.CreateVersion(ctx, "doc1", analysisOf("text"), CreateOptions{})
		require.NoError(t, err)
		clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		_, err = s.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{ValidateIntegrity: true})
		assert.ErrorIs(t, err, ErrIntegrityCheckFailed)

		_, err = s.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{})
		assert.NoError(t, err, "validation is opt-in")
	})
}

func TestRollbackUnknownTarget(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.RollbackToVersion(context.Background(), "doc1", "v", RollbackOptions{})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = s.CreateVersion(context.Background(), "doc1", analysisOf("x"), CreateOptions{})
	require.NoError(t, err)
	_, err = s.RollbackToVersion(context.Background(), "doc1", "v", RollbackOptions{})
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestRollbackAfterImportKeepsFingerprintOnly(t *testing.T) {
	src, _ := newTestStore()
	ctx := context.Background()
	v1, err := src.CreateVersion(ctx, "doc1", analysisOf("one"), CreateOptions{})
	require.NoError(t, err)
	_, err = src.CreateVersion(ctx, "doc1", analysisOf("two"), CreateOptions{})
	require.NoError(t, err)
	data, err := src.ExportVersionHistory("doc1")
	require.NoError(t, err)

	dst, _ := newTestStore()
	_, err = dst.ImportVersionHistory(ctx, data)
	require.NoError(t, err)

	res, err := dst.RollbackToVersion(ctx, "doc1", v1.ID, RollbackOptions{ValidateIntegrity: true})
	require.NoError(t, err)
	assert.False(t, res.TextRestored)
	assert.Equal(t, v1.Fingerprint.Hash, res.Restored.Fingerprint.Hash)
	assert.Equal(t, 3, res.Restored.Version)
	assert.Contains(t, res.Restored.Changes[0].NewContent, "no longer retained")
}

func TestRollbackRestoresEmptyText(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	v1, err := s.CreateVersion(ctx, "scan", analysisOf(""), CreateOptions{})
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, "scan", analysisOf("ocr text"), CreateOptions{})
	require.NoError(t, err)

	res, err := s.RollbackToVersion(ctx, "scan", v1.ID, RollbackOptions{CreateBackup: true})
	require.NoError(t, err)
	assert.True(t, res.TextRestored)
	assert.True(t, res.Restored.TextRetained())
	assert.Contains(t, res.Restored.Changes[0].NewContent, "content restored")
	require.NotNil(t, res.Backup)
	assert.True(t, res.Backup.TextRetained())

	next, err := s.CreateVersion(ctx, "scan", analysisOf("ocr text"), CreateOptions{CompareWithPrevious: true})
	require.NoError(t, err)
	assert.Equal(t, "ocr text", next.Changes[len(next.Changes)-1].NewContent)
}
