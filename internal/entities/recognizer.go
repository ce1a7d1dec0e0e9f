// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package entities turns pattern matches and externally extracted entities
// into a deduplicated entity list.
package entities

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"lexscan/internal/document"
	"lexscan/internal/patterns"

	"github.com/rs/zerolog"
)

// ContextWindow is the number of bytes kept on each side of a match
const ContextWindow = 100

// EntityService extracts entities from raw text
type EntityService interface {
	Extract(ctx context.Context, text string) ([]document.Entity, error)
}

// Recognizer applies a pattern library to text and optionally merges
// entities from an EntityService when OCR output is available.
type Recognizer struct {
	library *patterns.Library
	service EntityService
	log     zerolog.Logger
}

// NewRecognizer creates a Recognizer. service may be nil.
func NewRecognizer(library *patterns.Library, service EntityService, log zerolog.Logger) *Recognizer {
	return &Recognizer{library: library, service: service, log: log}
}

// Recognize returns the deduplicated entities found in text. When ocr is
// non-nil, pattern entities are tagged hybrid and the entity service is
// consulted; a service failure only drops its contribution.
func (r *Recognizer) Recognize(ctx context.Context, text string, ocr *document.OCRResult) []document.Entity {
	source := document.SourceText
	if ocr != nil {
		source = document.SourceHybrid
	}

	var found []document.Entity
	for _, m := range r.library.Match(text) {
		found = append(found, document.Entity{
			EntityType: m.Category,
			Text:       m.Text,
			Confidence: m.Confidence,
			StartPos:   m.StartPos,
			EndPos:     m.EndPos,
			Context:    Window(text, m.StartPos, m.EndPos, ContextWindow),
			SourceType: source,
		})
	}

	if ocr != nil && r.service != nil {
		found = append(found, r.external(ctx, text, ocr)...)
	}

	return Deduplicate(found)
}

func (r *Recognizer) external(ctx context.Context, text string, ocr *document.OCRResult) []document.Entity {
	extracted, err := r.service.Extract(ctx, text)
	if err != nil {
		r.log.Warn().Err(err).Msg("entity service failed, keeping pattern entities only")
		return nil
	}

	boxes := ocr.Boxes()
	out := make([]document.Entity, 0, len(extracted))
	for _, e := range extracted {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		e.SourceType = document.SourceOCR
		if e.StartPos == 0 && e.EndPos == 0 {
			if idx := strings.Index(text, e.Text); idx >= 0 {
				e.StartPos = idx
				e.EndPos = idx + len(e.Text)
			}
		}
		if e.Context == "" && e.EndPos > e.StartPos && e.EndPos <= len(text) {
			e.Context = Window(text, e.StartPos, e.EndPos, ContextWindow)
		}
		if e.BoundingBox == nil {
			e.BoundingBox = boxFor(e.Text, boxes)
		}
		out = append(out, e)
	}
	return out
}

// boxFor returns the first OCR box whose text contains, or is contained in,
// the entity text
func boxFor(entityText string, words []document.OCRWord) *document.BoundingBox {
	needle := strings.ToLower(strings.TrimSpace(entityText))
	for _, w := range words {
		hay := strings.ToLower(strings.TrimSpace(w.Text))
		if hay == "" {
			continue
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			box := w.Box
			return &box
		}
	}
	return nil
}

type dedupKey struct {
	text       string
	entityType string
}

// Deduplicate keeps one entity per lowercase text and type, preferring the
// higher confidence and, on ties, the earlier entry. The result is sorted by
// start offset, then type, then text.
func Deduplicate(in []document.Entity) []document.Entity {
	index := make(map[dedupKey]int, len(in))
	out := make([]document.Entity, 0, len(in))
	for _, e := range in {
		k := dedupKey{text: strings.ToLower(e.Text), entityType: e.EntityType}
		if i, ok := index[k]; ok {
			if e.Confidence > out[i].Confidence {
				out[i] = e
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartPos != out[j].StartPos {
			return out[i].StartPos < out[j].StartPos
		}
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// Window returns text[start:end] padded by up to n bytes on each side,
// widened to rune boundaries
func Window(text string, start, end, n int) string {
	lo := start - n
	if lo < 0 {
		lo = 0
	}
	hi := end + n
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}
