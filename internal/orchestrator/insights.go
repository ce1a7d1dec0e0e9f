// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"regexp"
	"strings"

	"lexscan/internal/document"
	"lexscan/internal/extraction"
)

const (
	lowComplexityMax    = 15.0
	mediumComplexityMax = 25.0
	unknownDocumentType = "unknown"
)

var sentenceTerminators = regexp.MustCompile(`[.!?]+`)

// documentTypes is scored in order; earlier types win ties
var documentTypes = []struct {
	name     string
	keywords *regexp.Regexp
}{
	{"contract", regexp.MustCompile(`(?i)\b(?:agreement|party|parties|shall|hereby|terms|termination|consideration|covenants?)\b`)},
	{"brief", regexp.MustCompile(`(?i)\b(?:plaintiffs?|defendants?|argument|motion|respectfully|counsel|submits?)\b`)},
	{"opinion", regexp.MustCompile(`(?i)\b(?:opinion|held|holding|affirm(?:ed)?|reverse[d]?|dissent(?:ing)?|concur(?:ring)?|majority)\b`)},
	{"statute", regexp.MustCompile(`(?i)\b(?:enacted|subsection|chapter|codified|amended|provision|statute)\b`)},
}

// ComputeInsights derives text statistics and a document type guess
func ComputeInsights(text string) document.Insights {
	in := document.Insights{
		ParagraphCount: extraction.CountParagraphs(text),
		Complexity:     document.ComplexityLow,
		DocumentType:   unknownDocumentType,
	}

	totalLen := 0
	for _, s := range sentenceTerminators.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		in.SentenceCount++
		totalLen += len(s)
	}
	if in.SentenceCount > 0 {
		in.AverageSentenceLength = float64(totalLen) / float64(in.SentenceCount)
	}
	switch {
	case in.AverageSentenceLength < lowComplexityMax:
		in.Complexity = document.ComplexityLow
	case in.AverageSentenceLength <= mediumComplexityMax:
		in.Complexity = document.ComplexityMedium
	default:
		in.Complexity = document.ComplexityHigh
	}

	words := extraction.CountWords(text)
	if words == 0 {
		return in
	}
	in.TypeScores = make(map[string]float64, len(documentTypes))
	best := 0.0
	for _, dt := range documentTypes {
		score := float64(len(dt.keywords.FindAllStringIndex(text, -1))) / float64(words)
		in.TypeScores[dt.name] = score
		if score > best {
			best = score
			in.DocumentType = dt.name
		}
	}
	return in
}
