// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CreateBranch records a named pointer at baseVersionID. Branches are
// bookkeeping only; nothing is ever merged.
func (s *Store) CreateBranch(ctx context.Context, documentID, baseVersionID, name, description string) (Branch, error) {
	if err := ctx.Err(); err != nil {
		return Branch{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Branch{}, errors.New("branch name is required")
	}

	unlock := s.locks.lock(documentID)
	defer unlock()

	if _, err := s.GetVersion(documentID, baseVersionID); err != nil {
		return Branch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.docs[documentID]
	for _, b := range h.branches {
		if b.Name == name {
			return Branch{}, fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
	}

	b := Branch{
		ID:             s.newID(),
		Name:           name,
		BaseVersion:    baseVersionID,
		CurrentVersion: baseVersionID,
		Description:    description,
		IsActive:       true,
		CreatedAt:      s.now(),
		MergeConflicts: []MergeConflict{},
	}
	h.branches = append(h.branches, b)
	s.log.Info().Str("document_id", documentID).Str("branch", name).Msg("branch created")
	return b, nil
}

// ListBranches returns a document's branches in creation order
func (s *Store) ListBranches(documentID string) ([]Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return append([]Branch{}, h.branches...), nil
}

// GetBranch returns a branch by id or name
func (s *Store) GetBranch(documentID, branch string) (Branch, error) {
	branches, err := s.ListBranches(documentID)
	if err != nil {
		return Branch{}, err
	}
	for _, b := range branches {
		if b.ID == branch || b.Name == branch {
			return b, nil
		}
	}
	return Branch{}, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
}
