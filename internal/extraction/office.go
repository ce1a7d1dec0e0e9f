// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"
)

// OfficeExtractor reads word processor documents through lu4p/cat
type OfficeExtractor struct{}

// NewOfficeExtractor creates an office document extractor
func NewOfficeExtractor() *OfficeExtractor {
	return &OfficeExtractor{}
}

func (o *OfficeExtractor) Name() string {
	return "office"
}

func (o *OfficeExtractor) CanExtract(filePath string) bool {
	return hasExtension(filePath, ".docx", ".odt", ".rtf")
}

func (o *OfficeExtractor) Extract(ctx context.Context, filePath string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := cat.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(filePath), err)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	return newContent(filePath, text, format, o.Name(), 0), nil
}
