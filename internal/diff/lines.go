// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package diff compares document states line by line and classifies the
// resulting changes by severity and category.
//
// The line diff is a bounded greedy walk, not a minimal edit script. The
// classification rules below are defined against the op shapes it produces,
// so Lookahead and the replace fallback must stay as they are.
package diff

import "strings"

// Lookahead is how many lines past a mismatch the walker searches for a
// resynchronization point.
const Lookahead = 5

// OpKind is the kind of a diff operation
type OpKind string

const (
	OpEqual   OpKind = "equal"
	OpInsert  OpKind = "insert"
	OpDelete  OpKind = "delete"
	OpReplace OpKind = "replace"
)

// Op is one run of the line diff.
//
// Offset is the byte offset in the old text where the run starts. Inserts do
// not consume old text, so they leave the running offset unchanged.
type Op struct {
	Kind     OpKind
	OldLines []string
	NewLines []string
	OldIndex int
	NewIndex int
	Offset   int
}

// DiffLines walks the two texts with one cursor each and emits runs of
// equal, inserted, deleted and replaced lines.
func DiffLines(oldText, newText string) []Op {
	a := strings.Split(oldText, "\n")
	b := strings.Split(newText, "\n")

	var ops []Op
	i, j, offset := 0, 0, 0

	for i < len(a) && j < len(b) {
		if a[i] == b[j] {
			op := Op{Kind: OpEqual, OldIndex: i, NewIndex: j, Offset: offset}
			for i < len(a) && j < len(b) && a[i] == b[j] {
				op.OldLines = append(op.OldLines, a[i])
				op.NewLines = append(op.NewLines, b[j])
				offset += lineLen(a[i])
				i++
				j++
			}
			ops = append(ops, op)
			continue
		}

		if k := scanAhead(a, i, b[j]); k > 0 {
			op := Op{Kind: OpDelete, OldLines: copyLines(a[i : i+k]), OldIndex: i, NewIndex: j, Offset: offset}
			offset += linesLen(op.OldLines)
			i += k
			ops = append(ops, op)
			continue
		}

		if k := scanAhead(b, j, a[i]); k > 0 {
			ops = append(ops, Op{Kind: OpInsert, NewLines: copyLines(b[j : j+k]), OldIndex: i, NewIndex: j, Offset: offset})
			j += k
			continue
		}

		ops = append(ops, Op{
			Kind:     OpReplace,
			OldLines: []string{a[i]},
			NewLines: []string{b[j]},
			OldIndex: i,
			NewIndex: j,
			Offset:   offset,
		})
		offset += lineLen(a[i])
		i++
		j++
	}

	if i < len(a) {
		ops = append(ops, Op{Kind: OpDelete, OldLines: copyLines(a[i:]), OldIndex: i, NewIndex: j, Offset: offset})
	}
	if j < len(b) {
		ops = append(ops, Op{Kind: OpInsert, NewLines: copyLines(b[j:]), OldIndex: len(a), NewIndex: j, Offset: offset})
	}

	return ops
}

// scanAhead returns k in [1, Lookahead] such that lines[from+k] == target,
// or 0 if there is none within range.
func scanAhead(lines []string, from int, target string) int {
	for k := 1; k <= Lookahead && from+k < len(lines); k++ {
		if lines[from+k] == target {
			return k
		}
	}
	return 0
}

// lineLen counts the line plus its newline separator
func lineLen(line string) int {
	return len(line) + 1
}

func linesLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += lineLen(l)
	}
	return n
}

func copyLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
