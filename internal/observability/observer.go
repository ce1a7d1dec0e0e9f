// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// Level controls how much the observer records
type Level int

const (
	LevelOff     Level = 0
	LevelMetrics Level = 1
	LevelDebug   Level = 2
)

// Operation is one timed unit of work
type Operation struct {
	Component string
	Operation string
	FilePath  string
	Duration  time.Duration
	Success   bool
	Error     string
	Metadata  map[string]interface{}
}

// StandardObserver times pipeline operations and reports them through
// zerolog. An optional sink receives every completed operation.
type StandardObserver struct {
	level Level
	log   zerolog.Logger
	sink  func(Operation)
}

// NewStandardObserver creates an observer writing to log
func NewStandardObserver(level Level, log zerolog.Logger) *StandardObserver {
	return &StandardObserver{
		level: level,
		log:   log,
	}
}

// WithSink registers fn to receive completed operations
func (o *StandardObserver) WithSink(fn func(Operation)) *StandardObserver {
	o.sink = fn
	return o
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		op := Operation{
			Component: component,
			Operation: operation,
			FilePath:  filePath,
			Duration:  time.Since(start),
			Success:   success,
			Metadata:  metadata,
		}
		if errVal, ok := metadata["error"]; ok {
			if s, ok := errVal.(string); ok {
				op.Error = s
			}
		}
		o.LogOperation(op)
	}
}

// LogOperation records op
func (o *StandardObserver) LogOperation(op Operation) {
	if o == nil || o.level == LevelOff {
		return
	}
	if o.sink != nil {
		o.sink(op)
	}

	var ev *zerolog.Event
	switch {
	case !op.Success:
		ev = o.log.Warn()
	case o.level == LevelDebug:
		ev = o.log.Debug()
	default:
		return
	}

	ev = ev.Str("component", op.Component).
		Str("operation", op.Operation).
		Dur("duration", op.Duration).
		Bool("success", op.Success)
	if op.FilePath != "" {
		ev = ev.Str("file_path", op.FilePath)
	}
	if op.Error != "" {
		ev = ev.Str("error", op.Error)
	}
	if len(op.Metadata) > 0 {
		ev = ev.Fields(op.Metadata)
	}
	ev.Msg("operation completed")
}
