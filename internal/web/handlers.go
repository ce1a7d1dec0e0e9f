// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lexscan/internal/document"
	"lexscan/internal/formatters"
	"lexscan/internal/orchestrator"
	"lexscan/internal/version"
	"lexscan/internal/versioning"

	"github.com/go-chi/chi/v5"
)

// analysisInput describes the document to analyse and, for version
// creation, how to record it
type analysisInput struct {
	FilePath            string   `json:"file_path" validate:"required"`
	EnableOCR           bool     `json:"enable_ocr"`
	Author              string   `json:"author" validate:"max=200"`
	Comment             string   `json:"comment" validate:"max=2000"`
	Tags                []string `json:"tags" validate:"dive,required,max=100"`
	CompareWithPrevious *bool    `json:"compare_with_previous"`
}

type analyzeResponse struct {
	JobID    string              `json:"job_id"`
	Analysis *document.Analysis  `json:"analysis,omitempty"`
	Version  *versioning.Version `json:"version,omitempty"`
}

// handleHealth provides a health check endpoint with build information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"service":     "lexscan",
		"version":     version.Short(),
		"build_info":  version.Full(),
		"active_jobs": len(s.svc.Orchestrator.GetActiveJobs()),
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, formatters.GetSupportedFormats())
}

// readAnalysisInput accepts either a JSON body naming a server-side path or
// a multipart upload in the "file" field. The returned cleanup removes any
// temporary file and must always be called.
func (s *Server) readAnalysisInput(w http.ResponseWriter, r *http.Request) (analysisInput, string, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var in analysisInput
		if err := s.decodeJSON(w, r, &in); err != nil {
			return in, "", noop, err
		}
		return in, in.FilePath, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return analysisInput{}, "", noop, errInvalidBody{err}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return analysisInput{}, "", noop, errInvalidBody{errors.New("no file uploaded")}
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", fmt.Sprintf("lexscan_upload_*.%s", getFileExtension(header.Filename)))
	if err != nil {
		return analysisInput{}, "", noop, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	_, err = io.Copy(tmp, io.LimitReader(file, maxUploadSize))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return analysisInput{}, "", noop, fmt.Errorf("failed to store upload: %w", err)
	}

	in := analysisInput{
		FilePath:  tmp.Name(),
		EnableOCR: r.FormValue("enable_ocr") == "true",
		Author:    r.FormValue("author"),
		Comment:   r.FormValue("comment"),
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				in.Tags = append(in.Tags, t)
			}
		}
	}
	if v := r.FormValue("compare_with_previous"); v != "" {
		b := v == "true"
		in.CompareWithPrevious = &b
	}
	if err := s.validate.Struct(in); err != nil {
		cleanup()
		return analysisInput{}, "", noop, err
	}
	return in, sanitizeUserInput(header.Filename, 255), cleanup, nil
}

// getFileExtension extracts file extension from filename with sanitization
func getFileExtension(filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		safeExt := sanitizeUserInput(strings.TrimPrefix(ext, "."), 10)
		if safeExt != "" && isAlphanumeric(safeExt) {
			return strings.ToLower(safeExt)
		}
	}
	return "tmp"
}

func (s *Server) analyze(ctx context.Context, in analysisInput, displayName string) (string, *document.Analysis, error) {
	return s.svc.Orchestrator.AnalyzeDocument(ctx, in.FilePath, orchestrator.Options{
		EnableOCR:   in.EnableOCR,
		DisplayName: displayName,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	in, name, cleanup, err := s.readAnalysisInput(w, r)
	defer cleanup()
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	jobID, analysis, err := s.analyze(r.Context(), in, name)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendReport(w, r, formatters.Report{Analysis: analysis}, analyzeResponse{JobID: jobID, Analysis: analysis})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.svc.Orchestrator.Jobs(r.Context())
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Orchestrator.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, p)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.svc.Orchestrator.CancelJob(r.Context(), id)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, p)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.svc.Versions.Documents())
}

// persist runs the configured persistence hook; the in-memory change stands
// even when it fails
func (s *Server) persist(ctx context.Context, documentID string) {
	if s.svc.Persist == nil {
		return
	}
	if err := s.svc.Persist(ctx); err != nil {
		s.log.Warn().Err(err).Str("document_id", documentID).Msg("failed to persist version history")
	}
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	in, name, cleanup, err := s.readAnalysisInput(w, r)
	defer cleanup()
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	jobID, analysis, err := s.analyze(r.Context(), in, name)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	compare := true
	if in.CompareWithPrevious != nil {
		compare = *in.CompareWithPrevious
	}
	v, err := s.svc.Versions.CreateVersion(r.Context(), doc, analysis, versioning.CreateOptions{
		Author:              in.Author,
		Comment:             in.Comment,
		Tags:                in.Tags,
		CompareWithPrevious: compare,
	})
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.persist(r.Context(), doc)
	s.sendJSON(w, http.StatusCreated, analyzeResponse{JobID: jobID, Version: &v})
}

// searchCriteria parses author, tag, from, to and has_changes
func searchCriteria(r *http.Request) (versioning.SearchCriteria, bool, error) {
	q := r.URL.Query()
	var c versioning.SearchCriteria
	filtered := false

	if a := q.Get("author"); a != "" {
		c.Author = a
		filtered = true
	}
	if tags := q["tag"]; len(tags) > 0 {
		c.Tags = tags
		filtered = true
	}
	for _, bound := range []struct {
		name string
		dst  func(*versioning.DateRange) *time.Time
	}{
		{"from", func(d *versioning.DateRange) *time.Time { return &d.From }},
		{"to", func(d *versioning.DateRange) *time.Time { return &d.To }},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c, false, errInvalidBody{fmt.Errorf("%s must be RFC3339: %w", bound.name, err)}
		}
		if c.DateRange == nil {
			c.DateRange = &versioning.DateRange{}
		}
		*bound.dst(c.DateRange) = t
		filtered = true
	}
	if raw := q.Get("has_changes"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c, false, errInvalidBody{fmt.Errorf("has_changes must be a boolean: %w", err)}
		}
		c.HasChanges = &b
		filtered = true
	}
	return c, filtered, nil
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	criteria, filtered, err := searchCriteria(r)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	var versions []versioning.Version
	if filtered {
		versions, err = s.svc.Versions.SearchVersions(doc, criteria)
	} else {
		versions, err = s.svc.Versions.GetVersionHistory(doc)
	}
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	branches, err := s.svc.Versions.ListBranches(doc)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	h := &formatters.History{DocumentID: doc, Versions: versions, Branches: branches}
	s.sendReport(w, r, formatters.Report{History: h}, versions)
}

func (s *Server) handleLatestVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Versions.GetLatestVersion(chi.URLParam(r, "doc"))
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, v)
}

// handleGetVersion accepts a version id or a version number
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	doc, id := chi.URLParam(r, "doc"), chi.URLParam(r, "id")
	v, err := s.svc.Versions.GetVersion(doc, id)
	if errors.Is(err, versioning.ErrVersionNotFound) {
		if n, convErr := strconv.Atoi(id); convErr == nil {
			v, err = s.svc.Versions.GetVersionByNumber(doc, n)
		}
	}
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, v)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		s.sendError(w, "from and to version ids are required")
		return
	}
	result, err := s.svc.Versions.CompareVersions(r.Context(), chi.URLParam(r, "doc"), from, to)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendReport(w, r, formatters.Report{Diff: &result}, result)
}

type rollbackRequest struct {
	TargetVersionID   string `json:"target_version_id" validate:"required"`
	CreateBackup      bool   `json:"create_backup"`
	ValidateIntegrity bool   `json:"validate_integrity"`
	Author            string `json:"author" validate:"max=200"`
	Comment           string `json:"comment" validate:"max=2000"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	var req rollbackRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendFailure(w, err)
		return
	}
	result, err := s.svc.Versions.RollbackToVersion(r.Context(), doc, req.TargetVersionID, versioning.RollbackOptions{
		CreateBackup:      req.CreateBackup,
		ValidateIntegrity: req.ValidateIntegrity,
		Author:            req.Author,
		Comment:           req.Comment,
	})
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.persist(r.Context(), doc)
	s.sendJSON(w, http.StatusCreated, result)
}

type branchRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	BaseVersionID string `json:"base_version_id" validate:"required"`
	Description   string `json:"description" validate:"max=2000"`
}

func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	var req branchRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendFailure(w, err)
		return
	}
	b, err := s.svc.Versions.CreateBranch(r.Context(), doc, req.BaseVersionID, req.Name, req.Description)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.persist(r.Context(), doc)
	s.sendJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.svc.Versions.ListBranches(chi.URLParam(r, "doc"))
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, branches)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	data, err := s.svc.Versions.ExportVersionHistory(doc)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeUserInput(doc, 100)+`-history.yaml"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err != nil {
		s.sendFailure(w, errInvalidBody{err})
		return
	}
	doc, err := s.svc.Versions.ImportVersionHistory(r.Context(), data)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.persist(r.Context(), doc)
	s.sendJSON(w, http.StatusCreated, map[string]string{"document_id": doc})
}
