// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryOverrides(t *testing.T) {
	cfgDir := t.TempDir()
	dataDir := t.TempDir()
	t.Setenv(ConfigDirEnv, cfgDir)
	t.Setenv(DataDirEnv, dataDir)

	assert.Equal(t, cfgDir, GetConfigDir())
	assert.Equal(t, filepath.Join(cfgDir, "config.yaml"), GetConfigFile())
	assert.Equal(t, filepath.Join(dataDir, "archive"), GetArchiveDir())
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"plain", "contracts/lease.pdf", ""},
		{"empty", "", "path is empty"},
		{"null byte", "lease\x00.pdf", "null byte"},
		{"too long", strings.Repeat("a", maxPathLength+1), "maximum length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var pve *PathValidationError
			require.True(t, errors.As(err, &pve))
			assert.Contains(t, pve.Reason, tt.wantErr)
		})
	}
}

func TestValidateWindowsPath(t *testing.T) {
	assert.NoError(t, validateWindowsPath(`C:\contracts\lease.docx`))
	assert.Error(t, validateWindowsPath(`C:\contracts\lease?.docx`))
	assert.Error(t, validateWindowsPath(`contracts\a:b.docx`))
}

func TestResolvePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	dir := t.TempDir()
	got, err := ResolvePath(dir + "/sub/../lease.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lease.txt"), got)

	_, err = ResolvePath("")
	assert.Error(t, err)
}
