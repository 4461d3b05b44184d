// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/tvsched/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateCLI(t *testing.T) {
	dataDir := t.TempDir()
	valid := writeFile(t, "valid.yaml", fmt.Sprintf("data_dir: %q\n", dataDir))

	tests := []struct {
		name       string
		args       []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{name: "valid minimal config", args: []string{"-f", valid}, wantStdout: "is valid"},
		{
			name:       "invalid unknown key",
			args:       []string{"-f", writeFile(t, "unknown.yaml", "bogus: 1\n")},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{
			name:       "invalid type mismatch",
			args:       []string{"-f", writeFile(t, "type.yaml", "timeline:\n  days: many\n")},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{
			name:       "validation failure",
			args:       []string{"-f", writeFile(t, "range.yaml", "source:\n  time_mode: sometimes\n")},
			wantExit:   1,
			wantStderr: "Validation error",
		},
		{name: "no file flag provided", wantExit: 2, wantStderr: "--file is required"},
		{
			name:       "non-existent file",
			args:       []string{"-f", "does-not-exist.yaml"},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{name: "history not created yet", args: []string{"-f", valid, "-history"}, wantStdout: "does not exist yet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantExit, code, stderr.String())
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}

func TestValidateCLI_History(t *testing.T) {
	dataDir := t.TempDir()
	cfg := writeFile(t, "config.yaml", fmt.Sprintf("data_dir: %q\n", dataDir))

	store, err := history.Open(context.Background(), filepath.Join(dataDir, "history.db"), 5)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var stdout, stderr bytes.Buffer
	code := run([]string{"-f", cfg, "-history", "-full"}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "passed integrity check")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "history.db"), []byte("not a database, just text padding"), 0o600))
	stdout.Reset()
	stderr.Reset()
	code = run([]string{"-f", cfg, "-history"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "History")
}
