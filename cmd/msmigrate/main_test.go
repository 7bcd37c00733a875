// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/migrate"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"config.yml": "mode: csv\noutput_dir: out\ntables:\n  layers:\n    csv: layers.tsv\n    airtable: https://airtable.com/appA/tblL\n    fields: fields.yml\n",
		"fields.yml": "ark:\nLabel:\n  target: label\n",
		"layers.tsv": "ark\tLabel\nark:/21198/z9\tUndertext A\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := writeConfig(t)
	out, err := execute(t, "run",
		"--config", filepath.Join(dir, "config.yml"),
		"--type", "layer",
		"--env-file", filepath.Join(dir, "missing.env"),
	)
	require.NoError(t, err)

	var summary migrate.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Types, 1)
	assert.Equal(t, 1, summary.Types[0].Written)
	assert.NotEmpty(t, summary.Types[0].SchemaError, "no schema is configured for layers")
	assert.Equal(t, 0, summary.Types[0].Invalid, "records without a schema are written unvalidated")
	assert.FileExists(t, summary.CachePath)
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := writeConfig(t)
	out := filepath.Join(dir, "elsewhere")
	_, err := execute(t, "run",
		"--config", filepath.Join(dir, "config.yml"),
		"--output", out,
		"--dry-run",
		"--env-file", filepath.Join(dir, "missing.env"),
	)
	require.NoError(t, err)
	assert.NoDirExists(t, out)
}

func TestRunCommand_Errors(t *testing.T) {
	dir := writeConfig(t)
	t.Setenv(apiKeyEnv, "")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown record type",
			args:    []string{"--type", "quires"},
			wantErr: errs.ErrUnknownRecordType,
		},
		{
			name:    "missing configuration document",
			args:    []string{"--config", filepath.Join(dir, "nope.yml")},
			wantErr: errs.ErrConfiguration,
		},
		{
			name:    "airtable mode without a key",
			args:    []string{"--mode", "airtable"},
			wantErr: errs.ErrConfiguration,
		},
		{
			name:    "airtable endpoint without a scheme",
			args:    []string{"--mode", "airtable", "--airtable-key", "key", "--airtable-url", "api.example.org/v0"},
			wantErr: errs.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run",
				"--config", filepath.Join(dir, "config.yml"),
				"--env-file", filepath.Join(dir, "missing.env"),
			}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
