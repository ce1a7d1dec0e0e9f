// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extraction turns document files into plain text, either locally
// or through an external OCR service.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// PageSeparator starts every page after the first in extracted text
const PageSeparator = "\f"

// ErrUnsupportedFormat is returned when no extractor accepts a file
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Content is the text extracted from one file
type Content struct {
	Path       string
	Text       string
	Format     string
	PageCount  int
	WordCount  int
	CharCount  int
	LineCount  int
	Paragraphs int
	Extractor  string
}

// Extractor pulls plain text out of one family of file formats
type Extractor interface {
	Name() string
	CanExtract(filePath string) bool
	Extract(ctx context.Context, filePath string) (*Content, error)
}

// Manager tries each registered extractor that accepts a file until one
// succeeds.
type Manager struct {
	extractors []Extractor
}

// NewManager creates a manager with the given extractors in priority order
func NewManager(extractors ...Extractor) *Manager {
	return &Manager{extractors: extractors}
}

// DefaultManager registers the plaintext, PDF and office extractors
func DefaultManager() *Manager {
	return NewManager(NewPlainTextExtractor(), NewPDFExtractor(), NewOfficeExtractor())
}

// Register appends an extractor
func (m *Manager) Register(e Extractor) {
	m.extractors = append(m.extractors, e)
}

// Supports reports whether any extractor accepts filePath
func (m *Manager) Supports(filePath string) bool {
	for _, e := range m.extractors {
		if e.CanExtract(filePath) {
			return true
		}
	}
	return false
}

// Extract returns the first successful extraction
func (m *Manager) Extract(ctx context.Context, filePath string) (*Content, error) {
	var lastErr error
	tried := 0
	for _, e := range m.extractors {
		if !e.CanExtract(filePath) {
			continue
		}
		tried++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := e.Extract(ctx, filePath)
		if err == nil && content != nil {
			return content, nil
		}
		lastErr = fmt.Errorf("%s: %w", e.Name(), err)
	}
	if tried == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
	return nil, lastErr
}

// newContent fills the derived counts for text
func newContent(filePath, text, format, extractor string, pages int) *Content {
	if pages == 0 && text != "" {
		pages = 1
	}
	return &Content{
		Path:       filePath,
		Text:       text,
		Format:     format,
		PageCount:  pages,
		WordCount:  CountWords(text),
		CharCount:  len(text),
		LineCount:  strings.Count(text, "\n") + 1,
		Paragraphs: CountParagraphs(text),
		Extractor:  extractor,
	}
}

// CountWords counts whitespace separated tokens
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountParagraphs counts blocks of text separated by blank lines
func CountParagraphs(text string) int {
	count := 0
	inParagraph := false
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(strings.ReplaceAll(line, PageSeparator, "")) == "" {
			inParagraph = false
			continue
		}
		if !inParagraph {
			count++
			inParagraph = true
		}
	}
	return count
}

func hasExtension(filePath string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
