// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"encoding/json"
	"fmt"

	"lexscan/internal/formatters"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML format output, with the same keys and order as the JSON output"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

// Format goes through JSON so field names and order match the json
// formatter exactly.
func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	payload, err := report.Payload(options)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", fmt.Errorf("error converting to YAML: %w", err)
	}
	blockStyle(&node)

	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(out), nil
}

// blockStyle clears the flow and quoting styles the JSON input leaves on
// every node; the encoder still quotes strings that would change type
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
