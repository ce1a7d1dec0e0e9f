// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lexscan/internal/document"
	"lexscan/internal/resilience"

	"github.com/rs/zerolog"
)

// OCRService recognizes text and word positions in a file
type OCRService interface {
	Recognize(ctx context.Context, filePath string) (*document.OCRResult, error)
}

// HTTPOCRClient calls an OCR service that accepts a JSON body naming the
// file path and returns a document.OCRResult.
type HTTPOCRClient struct {
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	log      zerolog.Logger
}

// OCROption configures an HTTPOCRClient
type OCROption func(*HTTPOCRClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) OCROption {
	return func(o *HTTPOCRClient) { o.client = c }
}

// WithRetry replaces the default retry policy
func WithRetry(cfg resilience.RetryConfig) OCROption {
	return func(o *HTTPOCRClient) { o.retry = cfg }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) OCROption {
	return func(o *HTTPOCRClient) { o.log = log }
}

// NewHTTPOCRClient creates a client for endpoint
func NewHTTPOCRClient(endpoint string, timeout time.Duration, opts ...OCROption) *HTTPOCRClient {
	c := &HTTPOCRClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		retry:    resilience.DefaultRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("ocr")),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ocrRequest struct {
	FilePath string `json:"file_path"`
}

// Recognize sends filePath to the OCR service
func (c *HTTPOCRClient) Recognize(ctx context.Context, filePath string) (*document.OCRResult, error) {
	body, err := json.Marshal(ocrRequest{FilePath: filePath})
	if err != nil {
		return nil, err
	}

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error) {
		c.log.Warn().Err(err).Int("attempt", attempt).Str("file_path", filePath).Msg("retrying OCR request")
	}

	return resilience.RetryWithResult(ctx, cfg, func(ctx context.Context) (*document.OCRResult, error) {
		var result *document.OCRResult
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			result, callErr = c.post(ctx, body)
			return callErr
		})
		return result, err
	})
}

func (c *HTTPOCRClient) post(ctx context.Context, body []byte) (*document.OCRResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewPermanentError("invalid OCR request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resilience.ClassifyHTTPStatus("ocr service", resp.StatusCode)
	}

	var result document.OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resilience.NewPermanentError(fmt.Sprintf("malformed OCR response: %v", err), err)
	}
	if result.Text == "" {
		for i, p := range result.Pages {
			if i > 0 {
				result.Text += "\n" + PageSeparator
			}
			result.Text += p.Text
		}
	}
	return &result, nil
}
