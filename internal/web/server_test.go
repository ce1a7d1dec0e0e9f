// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"lexscan/internal/orchestrator"
	"lexscan/internal/versioning"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	leaseV1 = "Section 1 Rent\nThe Lessee shall pay $1,200.00 monthly.\nSection 2 Term\nThis lease runs for one year.\n"
	leaseV2 = "Section 1 Rent\nThe Lessee shall pay $1,500.00 monthly.\nSection 2 Term\nThis lease runs for one year.\nSection 3 Termination\nEither party may terminate with notice.\n"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	handler  http.Handler
	versions *versioning.Store
	persists atomic.Int32
	dir      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{versions: versioning.NewStore(), dir: t.TempDir()}
	srv := NewServer(Config{Addr: ":0"}, Services{
		Orchestrator: orchestrator.New(orchestrator.Config{Logger: zerolog.Nop()}),
		Versions:     ts.versions,
		Persist: func(context.Context) error {
			ts.persists.Add(1)
			return nil
		},
	}, zerolog.Nop())
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) write(t *testing.T, name, text string) string {
	t.Helper()
	p := filepath.Join(ts.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(text), 0o600))
	return p
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	env := decode(t, rec, &data)
	assert.True(t, env.Success)
	assert.Equal(t, "lexscan", data["service"])
	assert.Equal(t, "healthy", data["status"])
}

func TestAnalyzeByPathAndJobs(t *testing.T) {
	ts := newTestServer(t)
	path := ts.write(t, "lease.txt", leaseV1)

	rec := ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"file_path": path})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		JobID    string `json:"job_id"`
		Analysis struct {
			FilePath string `json:"file_path"`
			Entities []struct {
				EntityType string `json:"entity_type"`
				Text       string `json:"text"`
			} `json:"entities"`
		} `json:"analysis"`
	}
	decode(t, rec, &res)
	require.NotEmpty(t, res.JobID)
	assert.Equal(t, path, res.Analysis.FilePath)
	assert.NotEmpty(t, res.Analysis.Entities)

	rec = ts.do(t, http.MethodGet, "/api/jobs/"+res.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p orchestrator.Progress
	decode(t, rec, &p)
	assert.Equal(t, orchestrator.StageCompleted, p.Stage)
	assert.Equal(t, 100, p.Progress)

	rec = ts.do(t, http.MethodGet, "/api/jobs", nil)
	var jobs []orchestrator.Progress
	decode(t, rec, &jobs)
	assert.Len(t, jobs, 1)

	rec = ts.do(t, http.MethodDelete, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeErrors(t *testing.T) {
	ts := newTestServer(t)
	odd := ts.write(t, "scan.xyz", "data")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing path", map[string]any{}, http.StatusBadRequest},
		{"unknown field", map[string]any{"file_path": odd, "mode": "fast"}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
		{"missing file", map[string]any{"file_path": filepath.Join(ts.dir, "nope.txt")}, http.StatusNotFound},
		{"unsupported format", map[string]any{"file_path": odd}, http.StatusUnsupportedMediaType},
		{"null byte", map[string]any{"file_path": "lease\x00.txt"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/analyze", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAnalyzeUpload(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "lease.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(leaseV1))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze?format=text", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lexscan-analysis.txt")
	assert.Contains(t, rec.Body.String(), "File:        lease.txt")

	rec = ts.do(t, http.MethodGet, "/api/jobs", nil)
	var jobs []orchestrator.Progress
	decode(t, rec, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, "lease.txt", jobs[0].FilePath)
}

func TestUploadWithoutFile(t *testing.T) {
	ts := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("enable_ocr", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Troubleshooting")
}

func TestVersionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	path := ts.write(t, "lease.txt", leaseV1)

	rec := ts.do(t, http.MethodPost, "/api/documents/lease/versions", map[string]any{"file_path": path, "author": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Version versioning.Version `json:"version"`
	}
	decode(t, rec, &created)
	v1 := created.Version
	assert.Equal(t, 1, v1.Version)

	ts.write(t, "lease.txt", leaseV2)
	rec = ts.do(t, http.MethodPost, "/api/documents/lease/versions", map[string]any{"file_path": path, "author": "bob", "tags": []string{"signed"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	v2 := created.Version
	assert.Equal(t, 2, v2.Version)
	assert.NotEmpty(t, v2.Changes)

	var versions []versioning.Version
	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/versions", nil), &versions)
	assert.Len(t, versions, 2)

	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/versions?author=bob", nil), &versions)
	require.Len(t, versions, 1)
	assert.Equal(t, v2.ID, versions[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/documents/lease/versions?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var got versioning.Version
	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/versions/latest", nil), &got)
	assert.Equal(t, v2.ID, got.ID)
	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/versions/1", nil), &got)
	assert.Equal(t, v1.ID, got.ID)
	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/versions/"+v2.ID, nil), &got)
	assert.Equal(t, 2, got.Version)

	var result versioning.DiffResult
	decode(t, ts.do(t, http.MethodGet, "/api/documents/lease/compare?from="+v1.ID+"&to="+v2.ID, nil), &result)
	assert.Equal(t, len(v2.Changes), result.Summary.TotalChanges)
	assert.NotEmpty(t, result.Recommendations)

	rec = ts.do(t, http.MethodGet, "/api/documents/lease/compare?from="+v1.ID+"&to="+v2.ID+"&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Type,Severity,Category"))

	rec = ts.do(t, http.MethodGet, "/api/documents/lease/compare?from="+v1.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/documents/lease/rollback", map[string]any{
		"target_version_id": v1.ID, "create_backup": true, "validate_integrity": true, "author": "carol",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rb versioning.RollbackResult
	decode(t, rec, &rb)
	require.NotNil(t, rb.Backup)
	assert.Equal(t, 3, rb.Backup.Version)
	assert.Equal(t, 4, rb.Restored.Version)
	assert.Equal(t, v1.Fingerprint.Hash, rb.Restored.Fingerprint.Hash)

	assert.Equal(t, int32(3), ts.persists.Load())
}

func TestBranchesAndNotFound(t *testing.T) {
	ts := newTestServer(t)
	path := ts.write(t, "nda.txt", leaseV1)
	rec := ts.do(t, http.MethodPost, "/api/documents/nda/versions", map[string]any{"file_path": path})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Version versioning.Version `json:"version"`
	}
	decode(t, rec, &created)

	branch := map[string]any{"name": "redline", "base_version_id": created.Version.ID, "description": "counsel edits"}
	rec = ts.do(t, http.MethodPost, "/api/documents/nda/branches", branch)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/documents/nda/branches", branch)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var branches []versioning.Branch
	decode(t, ts.do(t, http.MethodGet, "/api/documents/nda/branches", nil), &branches)
	require.Len(t, branches, 1)
	assert.Equal(t, "redline", branches[0].Name)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/documents/missing/versions", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/documents/nda/versions/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/documents/nda/rollback", map[string]any{"target_version_id": "nope"}).Code)

	var docs []string
	decode(t, ts.do(t, http.MethodGet, "/api/documents", nil), &docs)
	assert.Equal(t, []string{"nda"}, docs)
}

func TestExportImport(t *testing.T) {
	ts := newTestServer(t)
	path := ts.write(t, "lease.txt", leaseV1)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/documents/lease/versions", map[string]any{"file_path": path}).Code)

	rec := ts.do(t, http.MethodGet, "/api/documents/lease/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-yaml", rec.Header().Get("Content-Type"))
	exported := rec.Body.String()
	assert.Contains(t, exported, "document_id: lease")

	other := newTestServer(t)
	rec = other.do(t, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res map[string]string
	decode(t, rec, &res)
	assert.Equal(t, "lease", res["document_id"])
	assert.Equal(t, []string{"lease"}, other.versions.Documents())

	rec = other.do(t, http.MethodPost, "/api/import", "versions: [")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsAndFormats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lexscan_http_requests_total{route="/health",status="200"}`)

	var formats []map[string]string
	decode(t, ts.do(t, http.MethodGet, "/api/formats", nil), &formats)
	assert.Len(t, formats, 4)
}
