// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint summarizes a document state so two states can be
// identified and compared.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"lexscan/internal/document"
	"lexscan/internal/extraction"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
)

var headingPattern = regexp.MustCompile(`^\s*(?:(?i:section|article)\s+[0-9IVXLC]+(?:\.[0-9]+)*\b.*|[0-9]+\.\s+[A-Z][A-Z \-]{2,})\s*$`)

var whitespace = regexp.MustCompile(`\s+`)

// Fingerprinter reads file-level metadata for fingerprints
type Fingerprinter struct {
	log zerolog.Logger
}

// New creates a Fingerprinter
func New(log zerolog.Logger) *Fingerprinter {
	return &Fingerprinter{log: log}
}

// CreateFingerprint gathers file metadata. Structure fields are zero and
// Hash is empty until Seal is called with the extracted text.
func (f *Fingerprinter) CreateFingerprint(ctx context.Context, filePath string) (document.Fingerprint, error) {
	var fp document.Fingerprint
	if err := ctx.Err(); err != nil {
		return fp, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fp, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	if info.IsDir() {
		return fp, fmt.Errorf("%s is a directory", filePath)
	}
	fp.Metadata.Created = info.ModTime().UTC()
	fp.Metadata.Modified = info.ModTime().UTC()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		f.readPDF(filePath, &fp)
	case ".jpg", ".jpeg", ".tif", ".tiff":
		f.readExif(filePath, &fp)
	}
	return fp, nil
}

// readPDF fills page count and info dictionary fields. Failures leave the
// fields empty since extraction may still succeed.
func (f *Fingerprinter) readPDF(filePath string, fp *document.Fingerprint) {
	if pdfCtx, err := api.ReadContextFile(filePath); err == nil {
		fp.Structure.PageCount = pdfCtx.PageCount
	} else {
		f.log.Debug().Err(err).Str("file_path", filePath).Msg("pdfcpu could not read PDF")
	}

	title, author, err := extraction.PDFInfo(filePath)
	if err != nil {
		f.log.Debug().Err(err).Str("file_path", filePath).Msg("no PDF info dictionary")
		return
	}
	fp.Metadata.Title = title
	fp.Metadata.Author = author
}

func (f *Fingerprinter) readExif(filePath string, fp *document.Fingerprint) {
	file, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		f.log.Debug().Err(err).Str("file_path", filePath).Msg("no EXIF data")
		return
	}
	if t, err := x.DateTime(); err == nil {
		fp.Metadata.Created = t.UTC()
	}
	if tag, err := x.Get(exif.Artist); err == nil {
		if s, err := tag.StringVal(); err == nil {
			fp.Metadata.Author = strings.TrimSpace(s)
		}
	}
	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if s, err := tag.StringVal(); err == nil {
			fp.Metadata.Title = strings.TrimSpace(s)
		}
	}
}

// Seal completes a fingerprint from the extracted text. pageCount is the
// extractor's page count and wins when the file metadata had none.
func Seal(fp document.Fingerprint, text string, pageCount int) document.Fingerprint {
	fp.Hash = Hash(text)
	if fp.Structure.PageCount == 0 {
		fp.Structure.PageCount = pageCount
	}
	fp.Structure.WordCount = extraction.CountWords(text)
	fp.Structure.ParagraphCount = extraction.CountParagraphs(text)
	fp.Structure.Sections = Sections(text)
	return fp
}

// Normalize lowercases text and collapses whitespace runs
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(text, " ")))
}

// Hash is the hex SHA-256 of the normalized text
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Sections lists heading lines in document order
func Sections(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, extraction.PageSeparator, ""))
		if line != "" && headingPattern.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}
