// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	RecordAnalysis("completed")
	ObserveStage("fingerprinting", 5*time.Millisecond)
	IncVersionsCreated()
	RecordHTTPRequest("/api/jobs", "200")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"lexscan_analyses_total",
		"lexscan_stage_duration_seconds",
		"lexscan_versions_created_total",
		"lexscan_http_requests_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
