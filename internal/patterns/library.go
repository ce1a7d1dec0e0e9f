// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package patterns provides the immutable table of legal text patterns used
// by entity recognition and compliance analysis.
package patterns

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Category groups patterns by the legal concept they detect
type Category string

const (
	CategoryCitation Category = "citation"
	CategoryStatute  Category = "statute"
	CategoryCourt    Category = "court"
	CategoryEntity   Category = "entity"
	CategoryDate     Category = "date"
	CategoryMonetary Category = "monetary"
)

var validCategories = map[Category]bool{
	CategoryCitation: true,
	CategoryStatute:  true,
	CategoryCourt:    true,
	CategoryEntity:   true,
	CategoryDate:     true,
	CategoryMonetary: true,
}

// Pattern is a named, compiled matching rule with a fixed confidence weight
type Pattern struct {
	Name         string
	Expression   *regexp.Regexp
	Category     Category
	Confidence   float64
	Jurisdiction string
}

// Definition is the serializable form of a Pattern
type Definition struct {
	Name         string   `yaml:"name"`
	Expression   string   `yaml:"expression"`
	Category     Category `yaml:"category"`
	Confidence   float64  `yaml:"confidence"`
	Jurisdiction string   `yaml:"jurisdiction,omitempty"`
}

// Library is a read-only set of compiled patterns. It is safe for
// concurrent use once built.
type Library struct {
	patterns []Pattern
	byName   map[string]int
}

// New compiles the given definitions into a Library. Names must be unique,
// categories known and confidences within [0,1].
func New(defs []Definition) (*Library, error) {
	lib := &Library{
		patterns: make([]Pattern, 0, len(defs)),
		byName:   make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("pattern with expression %q has no name", d.Expression)
		}
		if _, dup := lib.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate pattern name %q", d.Name)
		}
		if !validCategories[d.Category] {
			return nil, fmt.Errorf("pattern %q: unknown category %q", d.Name, d.Category)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, fmt.Errorf("pattern %q: confidence %.2f outside [0,1]", d.Name, d.Confidence)
		}
		re, err := regexp.Compile(d.Expression)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", d.Name, err)
		}
		lib.byName[d.Name] = len(lib.patterns)
		lib.patterns = append(lib.patterns, Pattern{
			Name:         d.Name,
			Expression:   re,
			Category:     d.Category,
			Confidence:   d.Confidence,
			Jurisdiction: d.Jurisdiction,
		})
	}
	return lib, nil
}

// Default returns the built-in legal pattern table
func Default() *Library {
	lib, err := New(DefaultDefinitions())
	if err != nil {
		// built-in table is static; a failure here is a programming error
		panic(err)
	}
	return lib
}

// LoadFile reads a YAML list of definitions. When extend is true the file is
// appended to the built-in table, otherwise it replaces it.
func LoadFile(path string, extend bool) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	var file struct {
		Patterns []Definition `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file %s: %w", path, err)
	}
	defs := file.Patterns
	if extend {
		defs = append(DefaultDefinitions(), defs...)
	}
	return New(defs)
}

// All returns a copy of every pattern in table order
func (l *Library) All() []Pattern {
	out := make([]Pattern, len(l.patterns))
	copy(out, l.patterns)
	return out
}

// ByCategory returns the patterns of one category in table order
func (l *Library) ByCategory(c Category) []Pattern {
	var out []Pattern
	for _, p := range l.patterns {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// Get looks a pattern up by name
func (l *Library) Get(name string) (Pattern, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Pattern{}, false
	}
	return l.patterns[i], true
}

// Len returns the number of patterns
func (l *Library) Len() int {
	return len(l.patterns)
}

// Definitions returns the serializable form of the table
func (l *Library) Definitions() []Definition {
	defs := make([]Definition, 0, len(l.patterns))
	for _, p := range l.patterns {
		defs = append(defs, Definition{
			Name:         p.Name,
			Expression:   p.Expression.String(),
			Category:     p.Category,
			Confidence:   p.Confidence,
			Jurisdiction: p.Jurisdiction,
		})
	}
	return defs
}
