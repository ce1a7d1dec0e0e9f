// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package versioning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lexscan/internal/diff"
	"lexscan/internal/document"
	"lexscan/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxVersions is the per-document retention cap
const DefaultMaxVersions = 50

// history is the stored state of one document. next is the last version
// number handed out and keeps growing after pruning.
type history struct {
	versions []Version
	next     int
	branches []Branch
}

func (h *history) head() *Version {
	if len(h.versions) == 0 {
		return nil
	}
	return &h.versions[len(h.versions)-1]
}

func (h *history) find(versionID string) (int, bool) {
	for i := range h.versions {
		if h.versions[i].ID == versionID {
			return i, true
		}
	}
	return -1, false
}

// Store holds version histories in memory. Reads take a shared lock;
// mutations for one document are serialized by a per-document mutex.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*history
	locks *keyedMutex

	maxVersions int
	log         zerolog.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Store
type Option func(*Store)

// WithMaxVersions sets the retention cap. Values below 1 are ignored.
func WithMaxVersions(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.maxVersions = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]*history),
		locks:       newKeyedMutex(),
		maxVersions: DefaultMaxVersions,
		log:         zerolog.Nop(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxVersions returns the retention cap
func (s *Store) MaxVersions() int {
	return s.maxVersions
}

// CreateVersion appends a version built from analysis. With
// CompareWithPrevious, the version's changes are the fingerprint deltas
// followed by the line diff against the previous version's text; the line
// diff is skipped only when that text is no longer retained.
func (s *Store) CreateVersion(ctx context.Context, documentID string, analysis *document.Analysis, opts CreateOptions) (Version, error) {
	if documentID == "" {
		return Version{}, errors.New("document id is required")
	}
	if analysis == nil {
		return Version{}, errors.New("analysis is required")
	}
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}

	unlock := s.locks.lock(documentID)
	defer unlock()

	s.mu.RLock()
	var prev *Version
	if h, ok := s.docs[documentID]; ok {
		if head := h.head(); head != nil {
			p := head.clone()
			prev = &p
		}
	}
	s.mu.RUnlock()

	changes := []diff.Change{}
	if opts.CompareWithPrevious && prev != nil {
		changes = append(changes, diff.FingerprintChanges(prev.Fingerprint, analysis.Fingerprint)...)
		if prev.textRetained && prev.Text != analysis.TextContent {
			changes = append(changes, diff.Compare(prev.Text, analysis.TextContent)...)
		}
	}

	v := Version{
		Timestamp:   s.now(),
		Fingerprint: analysis.Fingerprint,
		Changes:     changes,
		Author:      opts.Author,
		Comment:     opts.Comment,
		Tags:        cloneTags(opts.Tags),
		Metadata: Metadata{
			Size:            len(analysis.TextContent),
			WordCount:       analysis.Fingerprint.Structure.WordCount,
			PageCount:       analysis.Fingerprint.Structure.PageCount,
			Checksum:        analysis.Fingerprint.Hash,
			AnalysisVersion: analysis.Metadata.Version,
			ProcessingTime:  analysis.Metadata.ProcessingTime,
		},
		Text:         analysis.TextContent,
		textRetained: true,
	}

	created := s.append(documentID, v)
	s.log.Info().
		Str("document_id", documentID).
		Int("version", created.Version).
		Int("changes", len(created.Changes)).
		Msg("version created")
	return created, nil
}

// append assigns the next number and id to v, links it to the current head
// and applies retention. The caller holds the document lock.
func (s *Store) append(documentID string, v Version) Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.docs[documentID]
	if !ok {
		h = &history{}
		s.docs[documentID] = h
	}

	h.next++
	v.ID = s.newID()
	v.DocumentID = documentID
	v.Version = h.next
	if head := h.head(); head != nil {
		v.ParentVersion = head.ID
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.Changes == nil {
		v.Changes = []diff.Change{}
	}
	h.versions = append(h.versions, v)
	metrics.IncVersionsCreated()

	if excess := len(h.versions) - s.maxVersions; excess > 0 {
		// the oldest retained version's parent becomes dangling
		h.versions = append([]Version(nil), h.versions[excess:]...)
		metrics.AddVersionsPruned(excess)
		s.log.Debug().Str("document_id", documentID).Int("pruned", excess).Msg("pruned old versions")
	}
	return v.clone()
}

// GetVersionHistory returns every retained version in ascending order
func (s *Store) GetVersionHistory(documentID string) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	out := make([]Version, len(h.versions))
	for i, v := range h.versions {
		out[i] = v.clone()
	}
	return out, nil
}

// GetVersion returns one version by id
func (s *Store) GetVersion(documentID, versionID string) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	i, ok := h.find(versionID)
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	return h.versions[i].clone(), nil
}

// GetVersionByNumber returns the retained version with number n
func (s *Store) GetVersionByNumber(documentID string, n int) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	for _, v := range h.versions {
		if v.Version == n {
			return v.clone(), nil
		}
	}
	return Version{}, fmt.Errorf("%w: %s version %d", ErrVersionNotFound, documentID, n)
}

// GetLatestVersion returns the head version
func (s *Store) GetLatestVersion(documentID string) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok || h.head() == nil {
		return Version{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return h.head().clone(), nil
}

// SearchVersions returns the versions matching every set criterion
func (s *Store) SearchVersions(documentID string, criteria SearchCriteria) ([]Version, error) {
	all, err := s.GetVersionHistory(documentID)
	if err != nil {
		return nil, err
	}
	var out []Version
	for _, v := range all {
		if criteria.matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c SearchCriteria) matches(v Version) bool {
	if c.Author != "" && v.Author != c.Author {
		return false
	}
	for _, t := range c.Tags {
		if !v.HasTag(t) {
			return false
		}
	}
	if c.DateRange != nil {
		if !c.DateRange.From.IsZero() && v.Timestamp.Before(c.DateRange.From) {
			return false
		}
		if !c.DateRange.To.IsZero() && v.Timestamp.After(c.DateRange.To) {
			return false
		}
	}
	if c.HasChanges != nil && (len(v.Changes) > 0) != *c.HasChanges {
		return false
	}
	return true
}

// Documents lists the ids of every document with history
func (s *Store) Documents() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// VersionTexts returns the retained text of each version of a document,
// keyed by version id. Versions whose text was not kept are omitted; an
// empty retained text is included.
func (s *Store) VersionTexts(documentID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	texts := make(map[string]string, len(h.versions))
	for _, v := range h.versions {
		if v.textRetained {
			texts[v.ID] = v.Text
		}
	}
	return texts, nil
}

// RestoreText reattaches text to a version loaded without it
func (s *Store) RestoreText(documentID, versionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.docs[documentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	i, ok := h.find(versionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	h.versions[i].Text = text
	h.versions[i].textRetained = true
	return nil
}

func cloneTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
