// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseV1 = `COMMERCIAL LEASE AGREEMENT

This Lease Agreement is entered into on January 5, 2024 between Acme Holdings LLC
and Blue River Partners Inc.

Section 1. Rent
The Tenant shall pay $4,500.00 per month.

Section 2. Termination
Either party may terminate this agreement with 60 days written notice.
`

const leaseV2 = `COMMERCIAL LEASE AGREEMENT

This Lease Agreement is entered into on January 5, 2024 between Acme Holdings LLC
and Blue River Partners Inc.

Section 1. Rent
The Tenant shall pay $5,200.00 per month.

Section 2. Termination
Either party may terminate this agreement with 90 days written notice.
`

type testEnv struct {
	t      *testing.T
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf("logging:\n  level: off\narchive:\n  path: %s\n", filepath.Join(dir, "archive"))
	path := filepath.Join(dir, "lexscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &testEnv{t: t, dir: dir, config: path}
}

func (e *testEnv) file(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes one CLI invocation and returns stdout, stderr and the error
func (e *testEnv) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--config", e.config, "--no-color", "--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run(args...)
	require.NoError(e.t, err, errOut)
	return out
}

func decode(t *testing.T, data string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &m), data)
	return m
}

func TestAnalyzeText(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("lease.txt", leaseV1)

	out := env.mustRun("analyze", path)
	assert.Contains(t, out, "=== Document Analysis ===")
	assert.Contains(t, out, path)
}

func TestAnalyzeJSONHidesText(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("lease.txt", leaseV1)

	m := decode(t, env.mustRun("-f", "json", "analyze", path))
	assert.Equal(t, path, m["file_path"])
	assert.Empty(t, m["text_content"])

	m = decode(t, env.mustRun("-f", "json", "--show-text", "analyze", path))
	assert.Contains(t, m["text_content"], "Blue River Partners")
}

func TestAnalyzeErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("analyze", filepath.Join(env.dir, "missing.txt"))
	assert.Error(t, err)

	_, _, err = env.run("-f", "xml", "analyze", env.file("lease.txt", leaseV1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, _, err = env.run("analyze")
	assert.Error(t, err)
}

func TestAnalyzeSave(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("lease.txt", leaseV1)

	env.mustRun("analyze", "--save", "--author", "alice", path)

	m := decode(t, env.mustRun("-f", "json", "version", "show", "lease"))
	versions := m["versions"].([]any)
	require.Len(t, versions, 1)
	assert.Equal(t, "alice", versions[0].(map[string]any)["author"])
}

func TestVersionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("lease.txt", leaseV1)

	out := env.mustRun("version", "create", "--author", "alice", "--tag", "draft", path)
	assert.Contains(t, out, "History of lease")

	require.NoError(t, os.WriteFile(path, []byte(leaseV2), 0o600))
	env.mustRun("version", "create", "--author", "bob", "--comment", "rent increase", path)

	history := decode(t, env.mustRun("-f", "json", "version", "history", "lease"))
	versions := history["versions"].([]any)
	require.Len(t, versions, 2)
	second := versions[1].(map[string]any)
	assert.Equal(t, float64(2), second["version"])
	assert.Equal(t, "bob", second["author"])
	assert.NotEmpty(t, second["changes"])

	found := decode(t, env.mustRun("-f", "json", "version", "search", "lease", "--author", "alice"))
	assert.Len(t, found["versions"].([]any), 1)

	found = decode(t, env.mustRun("-f", "json", "version", "search", "lease", "--tag", "draft", "--has-changes=false"))
	assert.Len(t, found["versions"].([]any), 1)

	diff := decode(t, env.mustRun("-f", "json", "version", "compare", "lease", "1", "v2"))
	assert.Equal(t, "lease", diff["document_id"])
	assert.NotEmpty(t, diff["changes"])

	rollback := decode(t, env.mustRun("-f", "json", "version", "rollback", "lease", "1", "--author", "carol"))
	assert.NotNil(t, rollback["backup"])
	restored := rollback["restored"].(map[string]any)
	assert.Equal(t, float64(4), restored["version"])

	latest := decode(t, env.mustRun("-f", "json", "version", "show", "lease", "latest"))
	assert.Equal(t, float64(4), latest["versions"].([]any)[0].(map[string]any)["version"])

	out = env.mustRun("documents")
	assert.Contains(t, out, "lease\tv4")
}

func TestVersionErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("version", "history", "nothing")
	assert.Error(t, err)

	env.mustRun("version", "create", env.file("nda.txt", leaseV1))

	_, _, err = env.run("version", "show", "nda", "7")
	assert.Error(t, err)

	_, _, err = env.run("version", "search", "nda", "--from", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --from")
}

func TestBranches(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("version", "create", "--document", "msa", env.file("contract.txt", leaseV1))

	out := env.mustRun("branch", "create", "msa", "1", "negotiation", "--description", "client redlines")
	assert.Contains(t, out, "negotiation")
	assert.NotContains(t, out, "No versions.")

	_, _, err := env.run("branch", "create", "msa", "1", "negotiation")
	assert.Error(t, err)

	listed := decode(t, env.mustRun("-f", "json", "branch", "list", "msa"))
	branches := listed["branches"].([]any)
	require.Len(t, branches, 1)
	assert.Equal(t, "client redlines", branches[0].(map[string]any)["description"])
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)
	path := env.file("lease.txt", leaseV1)
	env.mustRun("version", "create", path)
	require.NoError(t, os.WriteFile(path, []byte(leaseV2), 0o600))
	env.mustRun("version", "create", path)

	exported := filepath.Join(env.dir, "lease-history.yaml")
	env.mustRun("version", "export", "lease", "-o", exported)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "document_id: lease")

	other := newTestEnv(t)
	imported := decode(t, other.mustRun("-f", "json", "version", "import", exported))
	assert.Equal(t, "lease", imported["document_id"])
	assert.Len(t, imported["versions"].([]any), 2)

	_, _, err = other.run("version", "import", other.file("broken.yaml", "format_version: 9\n"))
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	env.file("docs/a.txt", leaseV1)
	env.file("docs/b.txt", leaseV2)
	env.file("docs/nested/c.txt", leaseV1)
	env.file("docs/image.bin", "\x00\x01")

	m := decode(t, env.mustRun("-f", "json", "batch", filepath.Join(env.dir, "docs"), "--auto-version"))
	results := m["results"].([]any)
	assert.Len(t, results, 2)
	assert.Equal(t, float64(2), m["stats"].(map[string]any)["processed_files"])

	m = decode(t, env.mustRun("-f", "json", "batch", "-r", filepath.Join(env.dir, "docs")))
	assert.Len(t, m["results"].([]any), 3)

	docs := env.mustRun("documents")
	assert.Contains(t, docs, "a\tv1")
	assert.Contains(t, docs, "b\tv1")
}

func TestBatchReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	good := env.file("good.txt", leaseV1)

	out, _, err := env.run("-f", "csv", "batch", good, filepath.Join(env.dir, "gone.txt"))
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	m := decode(t, env.mustRun("-f", "json", "info"))
	assert.Contains(t, m, "version")
	assert.Contains(t, m, "go_version")

	assert.Contains(t, env.mustRun("info"), "lexscan")
}

func TestParseTime(t *testing.T) {
	start, err := parseTime("2026-03-01", false)
	require.NoError(t, err)
	end, err := parseTime("2026-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 23, end.Hour())

	exact, err := parseTime("2026-03-01T10:00:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, 10, exact.Hour())
}
