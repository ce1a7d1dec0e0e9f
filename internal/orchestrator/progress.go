// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Stage is a step of the analysis pipeline
type Stage string

const (
	StageInitializing      Stage = "initializing"
	StageFingerprinting    Stage = "fingerprinting"
	StageTextExtraction    Stage = "text_extraction"
	StageEntityRecognition Stage = "entity_recognition"
	StagePatternMatching   Stage = "pattern_matching"
	StageComplianceCheck   Stage = "compliance_check"
	StageFinalizing        Stage = "finalizing"
	StageCompleted         Stage = "completed"
	StageError             Stage = "error"
)

// stageProgress is the percentage reported on entering each stage
var stageProgress = map[Stage]int{
	StageInitializing:      0,
	StageFingerprinting:    10,
	StageTextExtraction:    25,
	StageEntityRecognition: 50,
	StagePatternMatching:   70,
	StageComplianceCheck:   85,
	StageFinalizing:        95,
	StageCompleted:         100,
}

var stageMessages = map[Stage]string{
	StageInitializing:      "Initializing analysis",
	StageFingerprinting:    "Creating document fingerprint",
	StageTextExtraction:    "Extracting text",
	StageEntityRecognition: "Recognizing legal entities",
	StagePatternMatching:   "Analyzing patterns",
	StageComplianceCheck:   "Checking compliance",
	StageFinalizing:        "Finalizing analysis",
	StageCompleted:         "Analysis complete",
}

// Progress is the externally visible state of one analysis job
type Progress struct {
	JobID                  string         `json:"job_id"`
	FilePath               string         `json:"file_path"`
	Stage                  Stage          `json:"stage"`
	Progress               int            `json:"progress"`
	Message                string         `json:"message"`
	EstimatedTimeRemaining *time.Duration `json:"estimated_time_remaining,omitempty"`
	Errors                 []string       `json:"errors,omitempty"`
	StartedAt              time.Time      `json:"started_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	Cancelled              bool           `json:"cancelled,omitempty"`
}

// Done reports whether the job reached a terminal stage
func (p Progress) Done() bool {
	return p.Stage == StageCompleted || p.Stage == StageError || p.Cancelled
}

// ErrJobNotFound is returned for unknown job ids
var ErrJobNotFound = errors.New("job not found")

// JobStore persists job progress records
type JobStore interface {
	Put(ctx context.Context, p Progress) error
	Get(ctx context.Context, jobID string) (Progress, error)
	Delete(ctx context.Context, jobID string) error
	List(ctx context.Context) ([]Progress, error)
}

// MemoryJobStore keeps progress records in process memory
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Progress
}

// NewMemoryJobStore creates an empty MemoryJobStore
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Progress)}
}

// Put stores p, replacing any previous record for the job
func (s *MemoryJobStore) Put(_ context.Context, p Progress) error {
	p.Errors = append([]string(nil), p.Errors...)
	s.mu.Lock()
	s.jobs[p.JobID] = p
	s.mu.Unlock()
	return nil
}

// Get returns the record for jobID
func (s *MemoryJobStore) Get(_ context.Context, jobID string) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.jobs[jobID]
	if !ok {
		return Progress{}, ErrJobNotFound
	}
	return p, nil
}

// Delete removes the record for jobID
func (s *MemoryJobStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

// List returns every record ordered by start time
func (s *MemoryJobStore) List(_ context.Context) ([]Progress, error) {
	s.mu.RLock()
	out := make([]Progress, 0, len(s.jobs))
	for _, p := range s.jobs {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortByStart(out)
	return out, nil
}

func sortByStart(ps []Progress) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].StartedAt.Equal(ps[j].StartedAt) {
			return ps[i].StartedAt.Before(ps[j].StartedAt)
		}
		return ps[i].JobID < ps[j].JobID
	})
}
