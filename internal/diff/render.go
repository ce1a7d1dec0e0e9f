// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"bytes"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// RenderUnified prints the non-equal runs of ops as a unified diff with one
// hunk per run and no context lines.
func RenderUnified(name string, ops []Op) (string, error) {
	var hunks []*godiff.Hunk
	for _, op := range ops {
		if op.Kind == OpEqual {
			continue
		}
		hunks = append(hunks, hunkFor(op))
	}
	return printHunks(name, hunks)
}

// RenderChanges renders stored line changes as a unified diff. Changes
// without a line number, such as fingerprint deltas, are skipped.
func RenderChanges(name string, changes []Change) (string, error) {
	var hunks []*godiff.Hunk
	shift := 0
	for _, c := range changes {
		if c.Location.Line <= 0 {
			continue
		}
		op := Op{
			OldLines: splitContent(c.OldContent),
			NewLines: splitContent(c.NewContent),
			OldIndex: c.Location.Line - 1,
		}
		op.NewIndex = op.OldIndex + shift
		shift += len(op.NewLines) - len(op.OldLines)
		hunks = append(hunks, hunkFor(op))
	}
	return printHunks(name, hunks)
}

func splitContent(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func printHunks(name string, hunks []*godiff.Hunk) (string, error) {
	fd := &godiff.FileDiff{
		OrigName: "a/" + name,
		NewName:  "b/" + name,
		Hunks:    hunks,
	}
	if len(fd.Hunks) == 0 {
		return "", nil
	}

	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("failed to render unified diff: %w", err)
	}
	return string(out), nil
}

func hunkFor(op Op) *godiff.Hunk {
	var body bytes.Buffer
	for _, l := range op.OldLines {
		body.WriteString("-" + l + "\n")
	}
	for _, l := range op.NewLines {
		body.WriteString("+" + l + "\n")
	}

	h := &godiff.Hunk{
		OrigStartLine: int32(op.OldIndex),
		OrigLines:     int32(len(op.OldLines)),
		NewStartLine:  int32(op.NewIndex),
		NewLines:      int32(len(op.NewLines)),
		Body:          body.Bytes(),
	}
	// unified diffs number lines from 1, and an empty side points at the
	// line before the change
	if h.OrigLines > 0 {
		h.OrigStartLine++
	}
	if h.NewLines > 0 {
		h.NewStartLine++
	}
	return h
}
