// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"errors"
	"time"

	"lexscan/internal/batch"
	"lexscan/internal/document"
	"lexscan/internal/versioning"
)

// ErrEmptyReport is returned when a Report carries nothing to render
var ErrEmptyReport = errors.New("report is empty")

// History is a document's versions and branches
type History struct {
	DocumentID string               `json:"document_id"`
	Versions   []versioning.Version `json:"versions"`
	Branches   []versioning.Branch  `json:"branches"`
}

// BatchReport is the outcome of a batch run
type BatchReport struct {
	Results []batch.Result
	Stats   batch.Stats
}

// Report is one renderable result. Exactly one field is set.
type Report struct {
	Analysis *document.Analysis
	History  *History
	Diff     *versioning.DiffResult
	Rollback *versioning.RollbackResult
	Batch    *BatchReport
}

// Kind names the populated field
func (r Report) Kind() string {
	switch {
	case r.Analysis != nil:
		return "analysis"
	case r.History != nil:
		return "history"
	case r.Diff != nil:
		return "diff"
	case r.Rollback != nil:
		return "rollback"
	case r.Batch != nil:
		return "batch"
	default:
		return "empty"
	}
}

// BatchItem is the serializable form of batch.Result
type BatchItem struct {
	FilePath   string  `json:"file_path"`
	JobID      string  `json:"job_id,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	Version    int     `json:"version,omitempty"`
	Entities   int     `json:"entities"`
	Confidence float64 `json:"confidence"`
	DurationMS int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// BatchPayload is the serializable form of BatchReport
type BatchPayload struct {
	Results []BatchItem `json:"results"`
	Stats   batch.Stats `json:"stats"`
}

// Payload returns the value structured formatters serialize. Analyses drop
// their text unless ShowText is set.
func (r Report) Payload(options FormatterOptions) (any, error) {
	switch {
	case r.Analysis != nil:
		a := *r.Analysis
		if !options.ShowText {
			a.TextContent = ""
			a.OCR = nil
			entities := make([]document.Entity, len(a.Entities))
			for i, e := range a.Entities {
				e.Context = ""
				entities[i] = e
			}
			a.Entities = entities
		}
		return a, nil
	case r.History != nil:
		return r.History, nil
	case r.Diff != nil:
		return r.Diff, nil
	case r.Rollback != nil:
		return r.Rollback, nil
	case r.Batch != nil:
		return batchPayload(r.Batch), nil
	default:
		return nil, ErrEmptyReport
	}
}

func batchPayload(b *BatchReport) BatchPayload {
	out := BatchPayload{Results: make([]BatchItem, len(b.Results)), Stats: b.Stats}
	for i, r := range b.Results {
		out.Results[i] = NewBatchItem(r)
	}
	return out
}

// NewBatchItem flattens one batch result
func NewBatchItem(r batch.Result) BatchItem {
	item := BatchItem{
		FilePath:   r.FilePath,
		JobID:      r.JobID,
		DocumentID: r.DocumentID,
		DurationMS: r.Duration.Round(time.Millisecond).Milliseconds(),
	}
	if r.Version != nil {
		item.Version = r.Version.Version
	}
	if r.Analysis != nil {
		item.Entities = len(r.Analysis.Entities)
		item.Confidence = r.Analysis.Metadata.Confidence
	}
	if r.Err != nil {
		item.Error = r.Err.Error()
	}
	return item
}
