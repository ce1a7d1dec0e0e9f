// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lexscan/internal/diff"
	"lexscan/internal/document"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// HistoryFormatVersion identifies the export layout
const HistoryFormatVersion = 1

type historyFile struct {
	FormatVersion int               `yaml:"format_version" validate:"eq=1"`
	DocumentID    string            `yaml:"document_id" validate:"required"`
	ExportedAt    time.Time         `yaml:"exported_at"`
	NextVersion   int               `yaml:"next_version" validate:"gte=0"`
	Versions      []exportedVersion `yaml:"versions" validate:"min=1,dive"`
	Branches      []exportedBranch  `yaml:"branches,omitempty" validate:"dive"`
}

type exportedVersion struct {
	ID            string               `yaml:"id" validate:"required"`
	Version       int                  `yaml:"version" validate:"gte=1"`
	Timestamp     time.Time            `yaml:"timestamp" validate:"required"`
	Fingerprint   document.Fingerprint `yaml:"fingerprint"`
	Changes       []diff.Change        `yaml:"changes"`
	Author        string               `yaml:"author,omitempty"`
	Comment       string               `yaml:"comment,omitempty"`
	ParentVersion string               `yaml:"parent_version,omitempty"`
	Tags          []string             `yaml:"tags,omitempty"`
	Metadata      Metadata             `yaml:"metadata"`
}

type exportedBranch struct {
	ID             string    `yaml:"id" validate:"required"`
	Name           string    `yaml:"name" validate:"required"`
	BaseVersion    string    `yaml:"base_version" validate:"required"`
	CurrentVersion string    `yaml:"current_version" validate:"required"`
	Description    string    `yaml:"description,omitempty"`
	IsActive       bool      `yaml:"is_active"`
	CreatedAt      time.Time `yaml:"created_at"`
}

var historyValidator = validator.New()

var (
	validChangeTypes = map[diff.ChangeType]bool{
		diff.ChangeAddition: true, diff.ChangeDeletion: true, diff.ChangeModification: true, diff.ChangeMove: true,
	}
	validSeverities = map[diff.Severity]bool{
		diff.SeverityMinor: true, diff.SeverityMajor: true, diff.SeverityCritical: true,
	}
	validCategories = map[diff.Category]bool{
		diff.CategoryText: true, diff.CategoryStructure: true, diff.CategoryMetadata: true,
		diff.CategoryLegalEntity: true, diff.CategoryClause: true,
	}
)

// ExportVersionHistory serializes a document's history and branches as
// YAML. Version text is not included.
func (s *Store) ExportVersionHistory(documentID string) ([]byte, error) {
	s.mu.RLock()
	h, ok := s.docs[documentID]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	file := historyFile{
		FormatVersion: HistoryFormatVersion,
		DocumentID:    documentID,
		ExportedAt:    s.now().UTC(),
		NextVersion:   h.next,
		Versions:      make([]exportedVersion, 0, len(h.versions)),
	}
	for _, v := range h.versions {
		file.Versions = append(file.Versions, exportedVersion{
			ID:            v.ID,
			Version:       v.Version,
			Timestamp:     v.Timestamp,
			Fingerprint:   v.Fingerprint,
			Changes:       v.Changes,
			Author:        v.Author,
			Comment:       v.Comment,
			ParentVersion: v.ParentVersion,
			Tags:          v.Tags,
			Metadata:      v.Metadata,
		})
	}
	for _, b := range h.branches {
		file.Branches = append(file.Branches, exportedBranch{
			ID:             b.ID,
			Name:           b.Name,
			BaseVersion:    b.BaseVersion,
			CurrentVersion: b.CurrentVersion,
			Description:    b.Description,
			IsActive:       b.IsActive,
			CreatedAt:      b.CreatedAt,
		})
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("failed to encode history for %s: %w", documentID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportVersionHistory replaces the history of the document named in data
// and returns its id. Retention applies to the imported versions.
func (s *Store) ImportVersionHistory(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := decodeHistory(data)
	if err != nil {
		return "", err
	}

	h := &history{next: file.NextVersion}
	for _, ev := range file.Versions {
		v := Version{
			ID:            ev.ID,
			DocumentID:    file.DocumentID,
			Version:       ev.Version,
			Timestamp:     ev.Timestamp,
			Fingerprint:   ev.Fingerprint,
			Changes:       ev.Changes,
			Author:        ev.Author,
			Comment:       ev.Comment,
			ParentVersion: ev.ParentVersion,
			Tags:          cloneTags(ev.Tags),
			Metadata:      ev.Metadata,
		}
		if v.Changes == nil {
			v.Changes = []diff.Change{}
		}
		h.versions = append(h.versions, v)
		if v.Version > h.next {
			h.next = v.Version
		}
	}
	for _, eb := range file.Branches {
		h.branches = append(h.branches, Branch{
			ID:             eb.ID,
			Name:           eb.Name,
			BaseVersion:    eb.BaseVersion,
			CurrentVersion: eb.CurrentVersion,
			Description:    eb.Description,
			IsActive:       eb.IsActive,
			CreatedAt:      eb.CreatedAt,
			MergeConflicts: []MergeConflict{},
		})
	}
	if excess := len(h.versions) - s.maxVersions; excess > 0 {
		h.versions = h.versions[excess:]
	}

	unlock := s.locks.lock(file.DocumentID)
	defer unlock()

	s.mu.Lock()
	s.docs[file.DocumentID] = h
	s.mu.Unlock()

	s.log.Info().Str("document_id", file.DocumentID).Int("versions", len(h.versions)).Msg("imported version history")
	return file.DocumentID, nil
}

func decodeHistory(data []byte) (*historyFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file historyFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedHistory)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}
	if err := historyValidator.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}

	ids := make(map[string]bool, len(file.Versions))
	last := 0
	for _, v := range file.Versions {
		if v.Version <= last {
			return nil, fmt.Errorf("%w: version numbers must increase (%d after %d)", ErrMalformedHistory, v.Version, last)
		}
		last = v.Version
		if ids[v.ID] {
			return nil, fmt.Errorf("%w: duplicate version id %s", ErrMalformedHistory, v.ID)
		}
		ids[v.ID] = true
		for _, c := range v.Changes {
			if !validChangeTypes[c.Type] || !validSeverities[c.Severity] || !validCategories[c.Category] {
				return nil, fmt.Errorf("%w: version %d has an invalid change", ErrMalformedHistory, v.Version)
			}
		}
	}
	names := make(map[string]bool, len(file.Branches))
	for _, b := range file.Branches {
		if names[b.Name] {
			return nil, fmt.Errorf("%w: duplicate branch %s", ErrMalformedHistory, b.Name)
		}
		names[b.Name] = true
	}
	return &file, nil
}
