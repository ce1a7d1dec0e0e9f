// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package versioning keeps an append-only, capped version history per
// document with diffing, rollback and branch bookkeeping.
package versioning

import (
	"errors"
	"time"

	"lexscan/internal/diff"
	"lexscan/internal/document"
)

var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrVersionNotFound      = errors.New("version not found")
	ErrIntegrityCheckFailed = errors.New("version integrity check failed")
	ErrMalformedHistory     = errors.New("malformed version history")
	ErrBranchNotFound       = errors.New("branch not found")
	ErrBranchExists         = errors.New("branch already exists")
)

// Tags applied by rollback
const (
	TagBackup   = "backup"
	TagRollback = "rollback"
)

// Metadata summarizes the analysis a version was created from
type Metadata struct {
	Size            int           `json:"size" yaml:"size"`
	WordCount       int           `json:"word_count" yaml:"word_count"`
	PageCount       int           `json:"page_count" yaml:"page_count"`
	Checksum        string        `json:"checksum" yaml:"checksum"`
	AnalysisVersion string        `json:"analysis_version" yaml:"analysis_version"`
	ProcessingTime  time.Duration `json:"processing_time" yaml:"processing_time"`
}

// Version is one entry of a document's history. Text is the analysed text,
// kept in memory for the next line diff and never serialized. textRetained
// tells an empty text apart from one that was not kept, as after an import.
type Version struct {
	ID            string               `json:"id" yaml:"id"`
	DocumentID    string               `json:"document_id" yaml:"document_id"`
	Version       int                  `json:"version" yaml:"version"`
	Timestamp     time.Time            `json:"timestamp" yaml:"timestamp"`
	Fingerprint   document.Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	Changes       []diff.Change        `json:"changes" yaml:"changes"`
	Author        string               `json:"author,omitempty" yaml:"author,omitempty"`
	Comment       string               `json:"comment,omitempty" yaml:"comment,omitempty"`
	ParentVersion string               `json:"parent_version,omitempty" yaml:"parent_version,omitempty"`
	Tags          []string             `json:"tags" yaml:"tags"`
	Metadata      Metadata             `json:"metadata" yaml:"metadata"`
	Text          string               `json:"-" yaml:"-"`

	textRetained bool
}

// TextRetained reports whether v's analysed text is held in memory
func (v Version) TextRetained() bool {
	return v.textRetained
}

// clone returns a copy of v that shares no slices with it
func (v Version) clone() Version {
	v.Tags = append([]string{}, v.Tags...)
	v.Changes = append([]diff.Change{}, v.Changes...)
	if v.Fingerprint.Structure.Sections != nil {
		v.Fingerprint.Structure.Sections = append([]string{}, v.Fingerprint.Structure.Sections...)
	}
	return v
}

// HasTag reports whether tag is set on v
func (v Version) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MergeConflict describes a conflicting region between two lines of history
type MergeConflict struct {
	Location      diff.Location `json:"location" yaml:"location"`
	BaseContent   string        `json:"base_content" yaml:"base_content"`
	BranchContent string        `json:"branch_content" yaml:"branch_content"`
	MainContent   string        `json:"main_content" yaml:"main_content"`
	Resolution    string        `json:"resolution,omitempty" yaml:"resolution,omitempty"`
}

// Branch is a named pointer into a document's history
type Branch struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	BaseVersion    string          `json:"base_version" yaml:"base_version"`
	CurrentVersion string          `json:"current_version" yaml:"current_version"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive       bool            `json:"is_active" yaml:"is_active"`
	CreatedAt      time.Time       `json:"created_at" yaml:"created_at"`
	MergeConflicts []MergeConflict `json:"merge_conflicts" yaml:"merge_conflicts"`
}

// DiffSummary aggregates a set of changes
type DiffSummary struct {
	TotalChanges     int           `json:"total_changes"`
	Additions        int           `json:"additions"`
	Deletions        int           `json:"deletions"`
	Modifications    int           `json:"modifications"`
	Moves            int           `json:"moves"`
	Severity         diff.Severity `json:"severity"`
	ConfidenceScore  float64       `json:"confidence_score"`
	ImpactedSections []string      `json:"impacted_sections"`
}

// Highlight marks one changed region for display
type Highlight struct {
	Start    int             `json:"start"`
	End      int             `json:"end"`
	Page     int             `json:"page,omitempty"`
	Section  string          `json:"section,omitempty"`
	Type     diff.ChangeType `json:"type"`
	Severity diff.Severity   `json:"severity"`
}

// VisualDiff is the display form of a comparison
type VisualDiff struct {
	Highlights []Highlight `json:"highlights"`
	Unified    string      `json:"unified,omitempty"`
}

// DiffResult is the outcome of CompareVersions
type DiffResult struct {
	DocumentID      string        `json:"document_id"`
	FromVersion     string        `json:"from_version"`
	ToVersion       string        `json:"to_version"`
	Changes         []diff.Change `json:"changes"`
	Summary         DiffSummary   `json:"summary"`
	VisualDiff      *VisualDiff   `json:"visual_diff,omitempty"`
	Recommendations []string      `json:"recommendations"`
}

// CreateOptions controls CreateVersion
type CreateOptions struct {
	Author              string
	Comment             string
	Tags                []string
	CompareWithPrevious bool
}

// DateRange is an inclusive time window; zero bounds are open
type DateRange struct {
	From time.Time
	To   time.Time
}

// SearchCriteria filters versions. Every set criterion must match.
type SearchCriteria struct {
	Author     string
	Tags       []string
	DateRange  *DateRange
	HasChanges *bool
}

// RollbackOptions controls RollbackToVersion
type RollbackOptions struct {
	CreateBackup      bool
	ValidateIntegrity bool
	Author            string
	Comment           string
}

// RollbackResult reports the versions a rollback appended
type RollbackResult struct {
	Backup   *Version `json:"backup,omitempty"`
	Restored Version  `json:"restored"`
	// TextRestored is false when the target's text was no longer in memory
	TextRestored bool `json:"text_restored"`
}
