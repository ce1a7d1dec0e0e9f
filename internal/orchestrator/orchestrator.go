// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs the staged analysis pipeline and tracks the
// progress of each job.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lexscan/internal/compliance"
	"lexscan/internal/document"
	"lexscan/internal/entities"
	"lexscan/internal/extraction"
	"lexscan/internal/fingerprint"
	"lexscan/internal/metrics"
	"lexscan/internal/observability"
	"lexscan/internal/paths"
	"lexscan/internal/patterns"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrJobCancelled is returned by AnalyzeDocument when the job was cancelled
var ErrJobCancelled = errors.New("job cancelled")

// TextExtractor extracts plain text from a file
type TextExtractor interface {
	Extract(ctx context.Context, filePath string) (*extraction.Content, error)
}

// Options controls a single analysis run
type Options struct {
	EnableOCR bool
	// DisplayName replaces the analysed path in the job record and the
	// Analysis, e.g. the original name of an uploaded temp file
	DisplayName string
}

func (o Options) displayPath(filePath string) string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return filePath
}

// Config wires the orchestrator's collaborators. Nil fields get defaults,
// except OCR which stays disabled when nil.
type Config struct {
	Fingerprinter *fingerprint.Fingerprinter
	Extractor     TextExtractor
	OCR           extraction.OCRService
	Library       *patterns.Library
	Recognizer    *entities.Recognizer
	Checker       *compliance.Checker
	Jobs          JobStore
	Observer      *observability.StandardObserver
	Logger        zerolog.Logger
	Analyzer      string
	Version       string
}

type job struct {
	mu        sync.Mutex
	progress  Progress
	cancelled atomic.Bool
}

// Orchestrator sequences fingerprinting, extraction, recognition, pattern
// analysis and compliance checking. Each instance owns its job registry.
type Orchestrator struct {
	fingerprinter *fingerprint.Fingerprinter
	extractor     TextExtractor
	ocr           extraction.OCRService
	library       *patterns.Library
	recognizer    *entities.Recognizer
	checker       *compliance.Checker
	jobs          JobStore
	observer      *observability.StandardObserver
	log           zerolog.Logger
	analyzer      string
	version       string

	mu     sync.RWMutex
	active map[string]*job
	now    func() time.Time
}

// New creates an Orchestrator from cfg
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		fingerprinter: cfg.Fingerprinter,
		extractor:     cfg.Extractor,
		ocr:           cfg.OCR,
		library:       cfg.Library,
		recognizer:    cfg.Recognizer,
		checker:       cfg.Checker,
		jobs:          cfg.Jobs,
		observer:      cfg.Observer,
		log:           cfg.Logger,
		analyzer:      cfg.Analyzer,
		version:       cfg.Version,
		active:        make(map[string]*job),
		now:           time.Now,
	}
	if o.fingerprinter == nil {
		o.fingerprinter = fingerprint.New(cfg.Logger)
	}
	if o.extractor == nil {
		o.extractor = extraction.DefaultManager()
	}
	if o.library == nil {
		o.library = patterns.Default()
	}
	if o.recognizer == nil {
		o.recognizer = entities.NewRecognizer(o.library, nil, cfg.Logger)
	}
	if o.checker == nil {
		o.checker = compliance.NewChecker(nil)
	}
	if o.jobs == nil {
		o.jobs = NewMemoryJobStore()
	}
	if o.analyzer == "" {
		o.analyzer = "lexscan"
	}
	if o.version == "" {
		o.version = "1.0"
	}
	return o
}

// run carries the intermediate state of one analysis
type run struct {
	job      *job
	filePath string
	opts     Options
	started  time.Time

	fp       document.Fingerprint
	text     string
	ocr      *document.OCRResult
	degraded bool
	entities []document.Entity
	matches  []document.PatternMatch
	insights document.Insights
	checks   []document.ComplianceCheck
}

// AnalyzeDocument runs the full pipeline on filePath. The job id is returned
// even when the run fails so the error record can be inspected.
func (o *Orchestrator) AnalyzeDocument(ctx context.Context, filePath string, opts Options) (string, *document.Analysis, error) {
	r := &run{filePath: filePath, opts: opts, started: o.now()}
	r.job = o.register(ctx, opts.displayPath(filePath), r.started)
	jobID := r.job.progress.JobID
	defer o.unregister(jobID)

	log := o.log.With().Str("job_id", jobID).Str("file_path", filePath).Logger()
	log.Info().Msg("analysis started")

	steps := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageFingerprinting, o.fingerprint},
		{StageTextExtraction, o.extractText},
		{StageEntityRecognition, o.recognize},
		{StagePatternMatching, o.analyzePatterns},
		{StageComplianceCheck, o.checkCompliance},
		{StageFinalizing, nil},
	}

	for _, step := range steps {
		if err := o.enter(ctx, r, step.stage); err != nil {
			return jobID, nil, o.abort(ctx, r, step.stage, err, log)
		}
		if step.fn == nil {
			continue
		}
		done := o.observer.StartTiming("orchestrator", string(step.stage), filePath)
		stageStart := o.now()
		err := step.fn(ctx, r)
		metrics.ObserveStage(string(step.stage), o.now().Sub(stageStart))
		if err != nil {
			done(false, map[string]interface{}{"error": err.Error()})
			return jobID, nil, o.abort(ctx, r, step.stage, err, log)
		}
		done(true, nil)
	}

	analysis := o.assemble(jobID, r)
	if err := o.enter(ctx, r, StageCompleted); err != nil {
		return jobID, nil, o.abort(ctx, r, StageCompleted, err, log)
	}

	metrics.RecordAnalysis("completed")
	log.Info().
		Int("entities", len(analysis.Entities)).
		Bool("degraded", analysis.Degraded).
		Dur("duration", analysis.Metadata.ProcessingTime).
		Msg("analysis completed")
	return jobID, analysis, nil
}

func (o *Orchestrator) fingerprint(ctx context.Context, r *run) error {
	if err := paths.ValidatePath(r.filePath); err != nil {
		return err
	}
	fp, err := o.fingerprinter.CreateFingerprint(ctx, r.filePath)
	if err != nil {
		return fmt.Errorf("fingerprinting failed: %w", err)
	}
	r.fp = fp
	return nil
}

func (o *Orchestrator) extractText(ctx context.Context, r *run) error {
	if r.opts.EnableOCR {
		if o.ocr == nil {
			o.log.Warn().Str("file_path", r.filePath).Msg("OCR requested but no OCR service is configured, using plain extraction")
			r.degraded = true
		} else {
			res, err := o.ocr.Recognize(ctx, r.filePath)
			if err == nil {
				r.ocr = res
				r.text = res.Text
				r.fp = fingerprint.Seal(r.fp, r.text, len(res.Pages))
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warn().Err(err).Str("file_path", r.filePath).Msg("OCR failed, falling back to plain extraction")
			metrics.IncOCRFallbacks()
			r.degraded = true
		}
	}

	content, err := o.extractor.Extract(ctx, r.filePath)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}
	r.text = content.Text
	r.fp = fingerprint.Seal(r.fp, r.text, content.PageCount)
	return nil
}

func (o *Orchestrator) recognize(ctx context.Context, r *run) error {
	r.entities = o.recognizer.Recognize(ctx, r.text, r.ocr)
	return nil
}

func (o *Orchestrator) analyzePatterns(_ context.Context, r *run) error {
	r.matches = o.library.Match(r.text)
	r.insights = ComputeInsights(r.text)
	return nil
}

func (o *Orchestrator) checkCompliance(_ context.Context, r *run) error {
	r.checks = o.checker.Check(r.text, r.entities, r.matches)
	return nil
}

func (o *Orchestrator) assemble(jobID string, r *run) *document.Analysis {
	return &document.Analysis{
		ID:               jobID,
		FilePath:         r.opts.displayPath(r.filePath),
		Fingerprint:      r.fp,
		TextContent:      r.text,
		OCR:              r.ocr,
		Entities:         nonNil(r.entities),
		Patterns:         nonNil(r.matches),
		ComplianceChecks: nonNil(r.checks),
		Insights:         r.insights,
		Degraded:         r.degraded,
		Metadata: document.AnalysisMetadata{
			ProcessingTime: o.now().Sub(r.started),
			Version:        o.version,
			Analyzer:       o.analyzer,
			Confidence:     analysisConfidence(r),
		},
	}
}

// analysisConfidence is the OCR confidence when OCR produced the text,
// otherwise the mean entity confidence
func analysisConfidence(r *run) float64 {
	if r.ocr != nil && r.ocr.Confidence > 0 {
		return r.ocr.Confidence
	}
	if len(r.entities) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range r.entities {
		sum += e.Confidence
	}
	return sum / float64(len(r.entities))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// enter is the stage boundary: it observes cancellation and publishes the
// new stage
func (o *Orchestrator) enter(ctx context.Context, r *run, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// records are published under the job lock so a concurrent cancel is
	// never overwritten by a stale stage update
	r.job.mu.Lock()
	defer r.job.mu.Unlock()
	if r.job.cancelled.Load() {
		return ErrJobCancelled
	}
	r.job.progress.Stage = stage
	r.job.progress.Progress = stageProgress[stage]
	r.job.progress.Message = stageMessages[stage]
	r.job.progress.UpdatedAt = o.now()
	r.job.progress.EstimatedTimeRemaining = estimateRemaining(r.started, r.job.progress.UpdatedAt, r.job.progress.Progress)
	o.publish(ctx, r.job.progress)
	return nil
}

// estimateRemaining extrapolates elapsed time linearly over progress
func estimateRemaining(started, now time.Time, pct int) *time.Duration {
	if pct <= 0 || pct >= 100 {
		return nil
	}
	elapsed := now.Sub(started)
	d := time.Duration(float64(elapsed) * float64(100-pct) / float64(pct))
	return &d
}

func (o *Orchestrator) abort(ctx context.Context, r *run, stage Stage, err error, log zerolog.Logger) error {
	if errors.Is(err, ErrJobCancelled) {
		metrics.RecordAnalysis("cancelled")
		log.Info().Str("stage", string(stage)).Msg("analysis cancelled")
		return err
	}

	r.job.mu.Lock()
	r.job.progress.Stage = StageError
	r.job.progress.Message = fmt.Sprintf("Analysis failed during %s", stage)
	r.job.progress.Errors = append(r.job.progress.Errors, err.Error())
	r.job.progress.UpdatedAt = o.now()
	r.job.progress.EstimatedTimeRemaining = nil
	// the record must stay queryable even if the caller's context is done
	o.publish(context.WithoutCancel(ctx), r.job.progress)
	r.job.mu.Unlock()
	metrics.RecordAnalysis("error")
	log.Error().Err(err).Str("stage", string(stage)).Msg("analysis failed")
	return fmt.Errorf("analysis of %s failed at %s: %w", r.filePath, stage, err)
}

func (o *Orchestrator) publish(ctx context.Context, p Progress) {
	if err := o.jobs.Put(ctx, p); err != nil {
		o.log.Warn().Err(err).Str("job_id", p.JobID).Msg("failed to store job progress")
	}
}

func (o *Orchestrator) register(ctx context.Context, filePath string, started time.Time) *job {
	j := &job{progress: Progress{
		JobID:     uuid.NewString(),
		FilePath:  filePath,
		Stage:     StageInitializing,
		Progress:  stageProgress[StageInitializing],
		Message:   stageMessages[StageInitializing],
		StartedAt: started,
		UpdatedAt: started,
	}}

	o.mu.Lock()
	o.active[j.progress.JobID] = j
	n := len(o.active)
	o.mu.Unlock()

	metrics.SetActiveJobs(n)
	o.publish(ctx, j.progress)
	return j
}

func (o *Orchestrator) unregister(jobID string) {
	o.mu.Lock()
	delete(o.active, jobID)
	n := len(o.active)
	o.mu.Unlock()
	metrics.SetActiveJobs(n)
}

// GetProgress returns the latest record for jobID, including finished and
// failed jobs still held by the job store
func (o *Orchestrator) GetProgress(ctx context.Context, jobID string) (Progress, error) {
	o.mu.RLock()
	j, ok := o.active[jobID]
	o.mu.RUnlock()
	if ok {
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.progress, nil
	}
	return o.jobs.Get(ctx, jobID)
}

// CancelJob flags a running job as cancelled and removes its record from
// the active set and the job store. The pipeline stops at its next stage
// boundary. The returned record is the job's final state.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string) (Progress, error) {
	o.mu.Lock()
	j, ok := o.active[jobID]
	if ok {
		delete(o.active, jobID)
	}
	n := len(o.active)
	o.mu.Unlock()
	if !ok {
		return Progress{}, ErrJobNotFound
	}
	metrics.SetActiveJobs(n)

	j.mu.Lock()
	j.cancelled.Store(true)
	j.progress.Cancelled = true
	j.progress.Message = "Analysis cancelled"
	j.progress.UpdatedAt = o.now()
	final := j.progress
	if err := o.jobs.Delete(ctx, jobID); err != nil {
		o.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to remove cancelled job")
	}
	j.mu.Unlock()
	o.log.Info().Str("job_id", jobID).Msg("job cancelled")
	return final, nil
}

// GetActiveJobs returns the progress of every running job
func (o *Orchestrator) GetActiveJobs() []Progress {
	o.mu.RLock()
	out := make([]Progress, 0, len(o.active))
	for _, j := range o.active {
		j.mu.Lock()
		out = append(out, j.progress)
		j.mu.Unlock()
	}
	o.mu.RUnlock()
	sortByStart(out)
	return out
}

// Jobs returns every stored job record
func (o *Orchestrator) Jobs(ctx context.Context) ([]Progress, error) {
	return o.jobs.List(ctx)
}
