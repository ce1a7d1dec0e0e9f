// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths locates lexscan's configuration and data directories and
// validates document paths received from users.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment overrides for the standard directories
const (
	ConfigDirEnv = "LEXSCAN_CONFIG_DIR"
	DataDirEnv   = "LEXSCAN_DATA_DIR"
)

// maxPathLength is the longest path accepted on any platform
const maxPathLength = 32767

// GetConfigDir returns the lexscan configuration directory
func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lexscan")
	}
	return ".lexscan"
}

// GetConfigFile returns the path to the user config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetDataDir returns the directory holding the version archive
func GetDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "lexscan")
	}
	return ".lexscan"
}

// GetArchiveDir returns the default BadgerDB directory
func GetArchiveDir() string {
	return filepath.Join(GetDataDir(), "archive")
}

// PathValidationError represents a path validation error
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Reason
}

// ValidatePath rejects paths the current platform cannot open
func ValidatePath(path string) error {
	if path == "" {
		return &PathValidationError{Path: path, Reason: "path is empty"}
	}
	if len(path) > maxPathLength {
		return &PathValidationError{Path: path[:64] + "...", Reason: "path exceeds maximum length of 32,767 characters"}
	}
	if strings.ContainsRune(path, 0) {
		return &PathValidationError{Path: strings.ReplaceAll(path, "\x00", `\0`), Reason: "contains null byte"}
	}
	if runtime.GOOS == "windows" {
		return validateWindowsPath(path)
	}
	return nil
}

func validateWindowsPath(path string) error {
	for i, char := range path {
		if !strings.ContainsRune(`<>:"|?*`, char) {
			continue
		}
		// drive letter colon
		if char == ':' && i == 1 {
			continue
		}
		return &PathValidationError{Path: path, Reason: "contains invalid character: " + string(char)}
	}
	return nil
}

// ResolvePath validates path and returns its cleaned absolute form
func ResolvePath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", &PathValidationError{Path: path, Reason: err.Error()}
	}
	return abs, nil
}
