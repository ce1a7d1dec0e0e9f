// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// PlainTextExtractor reads text files as-is
type PlainTextExtractor struct {
	maxSize int64
}

// NewPlainTextExtractor creates a plain text extractor with a 50MB limit
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{maxSize: 50 * 1024 * 1024}
}

func (p *PlainTextExtractor) Name() string {
	return "plaintext"
}

func (p *PlainTextExtractor) CanExtract(filePath string) bool {
	return hasExtension(filePath, ".txt", ".text", ".md", ".markdown")
}

func (p *PlainTextExtractor) Extract(_ context.Context, filePath string) (*Content, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > p.maxSize {
		return nil, fmt.Errorf("file too large: %d bytes exceeds %d", info.Size(), p.maxSize)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8 text")
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return newContent(filePath, text, "text", p.Name(), strings.Count(text, PageSeparator)+1), nil
}
