// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"context"
	"fmt"

	"lexscan/internal/diff"
	"lexscan/internal/metrics"
)

// RollbackToVersion makes the target version's content the new head. With
// CreateBackup the current head is first copied into a version tagged
// backup and rollback. The restored head carries the target's fingerprint
// and, while it is still in memory, the target's text.
func (s *Store) RollbackToVersion(ctx context.Context, documentID, targetVersionID string, opts RollbackOptions) (RollbackResult, error) {
	if err := ctx.Err(); err != nil {
		return RollbackResult{}, err
	}

	unlock := s.locks.lock(documentID)
	defer unlock()

	target, err := s.GetVersion(documentID, targetVersionID)
	if err != nil {
		return RollbackResult{}, err
	}
	head, err := s.GetLatestVersion(documentID)
	if err != nil {
		return RollbackResult{}, err
	}

	if opts.ValidateIntegrity {
		if err := s.checkIntegrity(target); err != nil {
			return RollbackResult{}, err
		}
	}

	var result RollbackResult
	if opts.CreateBackup {
		backup := s.append(documentID, Version{
			Timestamp:   s.now(),
			Fingerprint: head.Fingerprint,
			Author:      opts.Author,
			Comment:     fmt.Sprintf("Backup of version %d before rollback to version %d", head.Version, target.Version),
			Tags:        []string{TagBackup, TagRollback},
			Metadata:    head.Metadata,
			Text:        head.Text,

			textRetained: head.textRetained,
		})
		result.Backup = &backup
	}

	comment := opts.Comment
	if comment == "" {
		comment = fmt.Sprintf("Rollback to version %d", target.Version)
	}

	result.TextRestored = target.textRetained
	newContent := fmt.Sprintf("content restored from version %d", target.Version)
	if !result.TextRestored {
		newContent = fmt.Sprintf("fingerprint restored from version %d; text no longer retained", target.Version)
	}

	result.Restored = s.append(documentID, Version{
		Timestamp:   s.now(),
		Fingerprint: target.Fingerprint,
		Changes: []diff.Change{{
			Type:       diff.ChangeModification,
			OldContent: fmt.Sprintf("version %d", head.Version),
			NewContent: newContent,
			Severity:   diff.SeverityMajor,
			Category:   diff.CategoryMetadata,
			Confidence: 1.0,
		}},
		Author:   opts.Author,
		Comment:  comment,
		Tags:     []string{TagRollback},
		Metadata: target.Metadata,
		Text:     target.Text,

		textRetained: target.textRetained,
	})

	metrics.IncRollbacks()
	s.log.Info().
		Str("document_id", documentID).
		Int("target_version", target.Version).
		Int("new_version", result.Restored.Version).
		Bool("backup", result.Backup != nil).
		Msg("rolled back document")
	return result, nil
}

// checkIntegrity rejects versions whose fingerprint or metadata cannot be
// trusted as a rollback target
func (s *Store) checkIntegrity(v Version) error {
	switch {
	case v.Fingerprint.Hash == "":
		return fmt.Errorf("%w: version %d has no content hash", ErrIntegrityCheckFailed, v.Version)
	case v.Metadata.Size < 0:
		return fmt.Errorf("%w: version %d has negative size", ErrIntegrityCheckFailed, v.Version)
	case v.Metadata.WordCount < 0:
		return fmt.Errorf("%w: version %d has negative word count", ErrIntegrityCheckFailed, v.Version)
	case v.Timestamp.After(s.now()):
		return fmt.Errorf("%w: version %d is timestamped in the future", ErrIntegrityCheckFailed, v.Version)
	}
	return nil
}
