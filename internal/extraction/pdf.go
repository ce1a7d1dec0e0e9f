// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"
	"fmt"
	"strings"

	dspdf "github.com/dslipak/pdf"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads PDF text page by page. It uses ledongthuc/pdf and
// retries with dslipak/pdf, whose parser accepts some files the first
// rejects.
type PDFExtractor struct {
	maxPages int
}

// NewPDFExtractor creates a PDF extractor that reads at most 500 pages
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{maxPages: 500}
}

func (p *PDFExtractor) Name() string {
	return "pdf"
}

func (p *PDFExtractor) CanExtract(filePath string) bool {
	return hasExtension(filePath, ".pdf")
}

func (p *PDFExtractor) Extract(ctx context.Context, filePath string) (*Content, error) {
	pages, err := p.extractPrimary(ctx, filePath)
	if err != nil {
		var fbErr error
		pages, fbErr = p.extractFallback(ctx, filePath)
		if fbErr != nil {
			return nil, fmt.Errorf("error reading PDF: %v (fallback: %v)", err, fbErr)
		}
	}

	text := strings.Join(pages, "\n"+PageSeparator)
	return newContent(filePath, text, "pdf", p.Name(), len(pages)), nil
}

func (p *PDFExtractor) extractPrimary(ctx context.Context, filePath string) (pages []string, err error) {
	// both parsers panic on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	n := min(r.NumPage(), p.maxPages)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}
	return pages, nil
}

func (p *PDFExtractor) extractFallback(ctx context.Context, filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := dspdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}

	n := min(r.NumPage(), p.maxPages)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}
	return pages, nil
}

// PDFInfo reads the title and author from the document information
// dictionary. Missing entries come back empty.
func PDFInfo(filePath string) (title, author string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", "", fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return "", "", nil
	}
	return info.Key("Title").Text(), info.Key("Author").Text(), nil
}
