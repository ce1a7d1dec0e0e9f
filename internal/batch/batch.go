// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package batch analyzes many documents concurrently and optionally records
// each result as a new version.
package batch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lexscan/internal/document"
	"lexscan/internal/observability"
	"lexscan/internal/orchestrator"
	"lexscan/internal/versioning"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs the analysis pipeline for one file
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, filePath string, opts orchestrator.Options) (string, *document.Analysis, error)
}

// Versioner records an analysis as a document version
type Versioner interface {
	CreateVersion(ctx context.Context, documentID string, analysis *document.Analysis, opts versioning.CreateOptions) (versioning.Version, error)
}

// ProgressCallback is called when a file is completed
type ProgressCallback func(completed, total int, currentFile string)

// Options controls one batch run
type Options struct {
	Concurrency int
	ChunkSize   int
	Analysis    orchestrator.Options
	// AutoVersion creates a version per successful analysis when a
	// Versioner is configured
	AutoVersion bool
	Author      string
	Progress    ProgressCallback
}

// Result is the outcome for one file
type Result struct {
	FilePath   string              `json:"file_path"`
	JobID      string              `json:"job_id,omitempty"`
	DocumentID string              `json:"document_id,omitempty"`
	Analysis   *document.Analysis  `json:"-"`
	Version    *versioning.Version `json:"version,omitempty"`
	Duration   time.Duration       `json:"duration"`
	Err        error               `json:"-"`
}

// Stats summarizes a batch run
type Stats struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	Versioned      int           `json:"versioned"`
	TotalDuration  time.Duration `json:"total_duration"`
	AvgFileTime    time.Duration `json:"avg_file_time"`
	Concurrency    int           `json:"concurrency"`
}

// Processor fans files out to an Analyzer
type Processor struct {
	analyzer   Analyzer
	versions   Versioner
	observer   *observability.StandardObserver
	log        zerolog.Logger
	documentID func(string) string
}

// Option configures a Processor
type Option func(*Processor)

// WithVersioner enables auto-versioning into v
func WithVersioner(v Versioner) Option {
	return func(p *Processor) { p.versions = v }
}

// WithObserver times each run
func WithObserver(o *observability.StandardObserver) Option {
	return func(p *Processor) { p.observer = o }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithDocumentID overrides how a file path maps to a document id
func WithDocumentID(fn func(string) string) Option {
	return func(p *Processor) { p.documentID = fn }
}

// NewProcessor creates a processor around analyzer
func NewProcessor(analyzer Analyzer, opts ...Option) *Processor {
	p := &Processor{
		analyzer:   analyzer,
		log:        zerolog.Nop(),
		documentID: DocumentID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DocumentID derives a document id from a file name without its extension
func DocumentID(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run analyzes files in chunks of ChunkSize with at most Concurrency
// analyses in flight. Results are returned in input order. A failed file is
// reported in its Result and does not stop the batch; only cancellation of
// ctx does.
func (p *Processor) Run(ctx context.Context, files []string, opts Options) ([]Result, Stats, error) {
	start := time.Now()
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = len(files)
	}

	var finishTiming func(bool, map[string]interface{})
	if p.observer != nil {
		finishTiming = p.observer.StartTiming("batch_processor", "process_files", "batch")
	}

	results := make([]Result, len(files))
	var mu sync.Mutex
	completed := 0

	for lo := 0; lo < len(files); lo += opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			return results, p.stats(results, opts, start), err
		}
		hi := min(lo+opts.ChunkSize, len(files))

		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				results[i] = p.process(ctx, files[i], opts)

				mu.Lock()
				completed++
				if opts.Progress != nil {
					opts.Progress(completed, len(files), files[i])
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	stats := p.stats(results, opts, start)
	if finishTiming != nil {
		finishTiming(stats.FailedFiles == 0, map[string]interface{}{
			"total_files":     stats.TotalFiles,
			"processed_files": stats.ProcessedFiles,
			"failed_files":    stats.FailedFiles,
			"versioned":       stats.Versioned,
			"concurrency":     stats.Concurrency,
			"duration_ms":     stats.TotalDuration.Milliseconds(),
		})
	}
	return results, stats, ctx.Err()
}

func (p *Processor) process(ctx context.Context, filePath string, opts Options) (r Result) {
	started := time.Now()
	r.FilePath = filePath
	defer func() { r.Duration = time.Since(started) }()

	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}

	jobID, analysis, err := p.analyzer.AnalyzeDocument(ctx, filePath, opts.Analysis)
	r.JobID = jobID
	if err != nil {
		p.log.Warn().Err(err).Str("file_path", filePath).Msg("batch item failed")
		r.Err = err
		return r
	}
	r.Analysis = analysis

	if opts.AutoVersion && p.versions != nil {
		r.DocumentID = p.documentID(filePath)
		v, err := p.versions.CreateVersion(ctx, r.DocumentID, analysis, versioning.CreateOptions{
			Author:              opts.Author,
			Comment:             "batch analysis",
			CompareWithPrevious: true,
		})
		if err != nil {
			p.log.Warn().Err(err).Str("document_id", r.DocumentID).Msg("batch versioning failed")
			r.Err = err
			return r
		}
		r.Version = &v
	}
	return r
}

func (p *Processor) stats(results []Result, opts Options, start time.Time) Stats {
	s := Stats{
		TotalFiles:    len(results),
		Concurrency:   opts.Concurrency,
		TotalDuration: time.Since(start),
	}
	var busy time.Duration
	for _, r := range results {
		if r.FilePath == "" {
			continue
		}
		busy += r.Duration
		if r.Err != nil {
			s.FailedFiles++
			continue
		}
		s.ProcessedFiles++
		if r.Version != nil {
			s.Versioned++
		}
	}
	s.AvgFileTime = busy / time.Duration(max(s.ProcessedFiles+s.FailedFiles, 1))
	return s
}
