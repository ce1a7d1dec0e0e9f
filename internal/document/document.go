// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package document holds the analysis-side data model shared by the
// extraction, recognition, compliance and versioning packages.
package document

import "time"

// SourceType records where an entity came from
type SourceType string

const (
	SourceText   SourceType = "text"
	SourceOCR    SourceType = "ocr"
	SourceHybrid SourceType = "hybrid"
)

// Structure summarizes the layout of extracted text
type Structure struct {
	PageCount      int      `json:"page_count" yaml:"page_count"`
	WordCount      int      `json:"word_count" yaml:"word_count"`
	ParagraphCount int      `json:"paragraph_count" yaml:"paragraph_count"`
	Sections       []string `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// FileMetadata is the descriptive metadata gathered from the file itself
type FileMetadata struct {
	Created  time.Time `json:"created" yaml:"created"`
	Modified time.Time `json:"modified" yaml:"modified"`
	Author   string    `json:"author,omitempty" yaml:"author,omitempty"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
}

// Fingerprint identifies a content state of a document.
// Hash is a digest of the normalized extracted text.
type Fingerprint struct {
	Hash      string       `json:"hash" yaml:"hash"`
	Structure Structure    `json:"structure" yaml:"structure"`
	Metadata  FileMetadata `json:"metadata" yaml:"metadata"`
}

// BoundingBox is a rectangular region on a page, in page units
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// Verification records an out-of-band confirmation of an entity
type Verification struct {
	Verified   bool    `json:"verified"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Entity is a span of text matched to a legal concept
type Entity struct {
	EntityType   string        `json:"entity_type"`
	Text         string        `json:"text"`
	Confidence   float64       `json:"confidence"`
	StartPos     int           `json:"start_pos"`
	EndPos       int           `json:"end_pos"`
	Context      string        `json:"context"`
	SourceType   SourceType    `json:"source_type"`
	BoundingBox  *BoundingBox  `json:"bounding_box,omitempty"`
	Verification *Verification `json:"verification,omitempty"`
}

// PatternMatch is a raw pattern hit, kept alongside entities for reporting
type PatternMatch struct {
	Pattern      string  `json:"pattern"`
	Category     string  `json:"category"`
	Text         string  `json:"text"`
	StartPos     int     `json:"start_pos"`
	EndPos       int     `json:"end_pos"`
	Confidence   float64 `json:"confidence"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
}

// ComplianceStatus is the outcome of a compliance rule
type ComplianceStatus string

const (
	StatusCompliant      ComplianceStatus = "compliant"
	StatusNonCompliant   ComplianceStatus = "non_compliant"
	StatusPartial        ComplianceStatus = "partial"
	StatusRequiresReview ComplianceStatus = "requires_review"
)

// Priority ranks how urgently a compliance finding needs attention
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ComplianceCheck is one evaluated regulatory requirement
type ComplianceCheck struct {
	Regulation     string           `json:"regulation"`
	Requirement    string           `json:"requirement"`
	Status         ComplianceStatus `json:"status"`
	Details        string           `json:"details"`
	Recommendation string           `json:"recommendation"`
	Priority       Priority         `json:"priority"`
	References     []string         `json:"references,omitempty"`
}

// OCRWord is a recognized word or line with its position
type OCRWord struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// OCRPage is the recognition output for one page
type OCRPage struct {
	Number int       `json:"number"`
	Text   string    `json:"text"`
	Words  []OCRWord `json:"words,omitempty"`
}

// OCRResult is what the external OCR service returns for a file
type OCRResult struct {
	Text       string    `json:"text"`
	Pages      []OCRPage `json:"pages"`
	Confidence float64   `json:"confidence"`
}

// Boxes flattens every positioned word across pages
func (r *OCRResult) Boxes() []OCRWord {
	if r == nil {
		return nil
	}
	var words []OCRWord
	for _, p := range r.Pages {
		for _, w := range p.Words {
			if w.Box.Page == 0 {
				w.Box.Page = p.Number
			}
			words = append(words, w)
		}
	}
	return words
}

// Complexity buckets average sentence length
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Insights are the derived text statistics computed during pattern analysis
type Insights struct {
	ParagraphCount        int                `json:"paragraph_count"`
	SentenceCount         int                `json:"sentence_count"`
	AverageSentenceLength float64            `json:"average_sentence_length"`
	Complexity            Complexity         `json:"complexity"`
	DocumentType          string             `json:"document_type"`
	TypeScores            map[string]float64 `json:"type_scores,omitempty"`
}

// AnalysisMetadata describes how an analysis was produced
type AnalysisMetadata struct {
	ProcessingTime time.Duration `json:"processing_time"`
	Version        string        `json:"version"`
	Analyzer       string        `json:"analyzer"`
	Confidence     float64       `json:"confidence"`
}

// Analysis is the immutable result of one orchestrator run
type Analysis struct {
	ID               string            `json:"id"`
	FilePath         string            `json:"file_path"`
	Fingerprint      Fingerprint       `json:"fingerprint"`
	TextContent      string            `json:"text_content"`
	OCR              *OCRResult        `json:"ocr,omitempty"`
	Entities         []Entity          `json:"entities"`
	Patterns         []PatternMatch    `json:"patterns"`
	ComplianceChecks []ComplianceCheck `json:"compliance_checks"`
	Insights         Insights          `json:"insights"`
	Degraded         bool              `json:"degraded,omitempty"`
	Metadata         AnalysisMetadata  `json:"metadata"`
}
