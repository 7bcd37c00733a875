// SPDX-License-Identifier: Apache-2.0

package migrate_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/dryrun"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/migrate"
	"github.com/sinai-manuscripts/msmigrate/internal/persist"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
	"github.com/sinai-manuscripts/msmigrate/internal/table/sources"
	"github.com/sinai-manuscripts/msmigrate/internal/validate"
)

const (
	configDoc = `mode: csv
output_dir: out
schemas:
  manuscript_objects: schemas/ms.json
  text_units: schemas/missing.json
tables:
  manuscript_objects:
    csv: data/ms.csv
    fields: fields/ms.yml
`
	fieldsDoc = `ark:
Shelfmark:
  target: shelfmark
extent:
Notes:
  skip: true
`
	msCSV = `ark,Shelfmark,extent,Notes
ark:/21198/z1,Sinai Arabic 1,12 ff.,check binding
ark:/21198/z2,,3 ff.,
,Sinai Greek 3,,
`
	msSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["ark", "shelfmark"],
  "properties": {
    "ark": {"type": "string"},
    "shelfmark": {"type": "string"}
  }
}`
)

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"config.yml":      configDoc,
		"fields/ms.yml":   fieldsDoc,
		"data/ms.csv":     msCSV,
		"schemas/ms.json": msSchema,
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newRunner(t *testing.T, dir string, dryRun bool) (*migrate.Runner, *config.Config) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, "config.yml"), config.Overrides{})
	require.NoError(t, err)

	policy := dryrun.New(dryRun, nil)
	ingester := table.NewIngester(nil, sources.NewFileSource())
	loader := validate.NewLoader(nil, policy, nil)
	store := persist.New(cfg.OutputDir, policy, nil)
	return migrate.NewRunner(cfg, ingester, loader, store, nil), cfg
}

func typeSummary(t *testing.T, s migrate.Summary, rt config.RecordType) migrate.TypeSummary {
	t.Helper()
	for _, ts := range s.Types {
		if ts.RecordType == rt {
			return ts
		}
	}
	t.Fatalf("no summary for %s", rt)
	return migrate.TypeSummary{}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	dir := writeWorkspace(t)
	runner, cfg := newRunner(t, dir, false)

	summary, err := runner.Run(context.Background(), migrate.Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Types, 3)
	assert.Equal(t, config.ManuscriptObjects, summary.Types[0].RecordType)

	ms := typeSummary(t, summary, config.ManuscriptObjects)
	assert.Equal(t, 2, ms.Written)
	assert.Equal(t, 1, ms.Invalid)
	assert.Equal(t, 1, ms.Failed, "the row without an ark fails")
	assert.Empty(t, ms.SchemaError)

	assert.ElementsMatch(t, []config.RecordType{config.Layers, config.TextUnits}, summary.Unvalidated())

	outDir := filepath.Join(cfg.OutputDir, "manuscript_objects")
	data, err := os.ReadFile(filepath.Join(outDir, "z1.json"))
	require.NoError(t, err)
	assert.Equal(t, `{
  "ark": "ark:/21198/z1",
  "shelfmark": "Sinai Arabic 1",
  "extent": "12 ff.",
  "metadata_rights": "`+config.DefaultMetadataRights+`",
  "image_rights": "`+config.DefaultImageRights+`"
}
`, string(data))
	assert.FileExists(t, filepath.Join(outDir, "z2.json"), "invalid records are still written")

	data, err = os.ReadFile(filepath.Join(outDir, "manuscript_objects_validation_errors.json"))
	require.NoError(t, err)
	var log []validate.Result
	require.NoError(t, json.Unmarshal(data, &log))
	require.Len(t, log, 1)
	assert.Equal(t, "ark:/21198/z2", log[0].RecordArk)
	assert.False(t, log[0].Valid)
	require.NotEmpty(t, log[0].Errors)
	assert.Equal(t, "/required", log[0].Errors[0].KeywordLocation)

	require.NotEmpty(t, summary.CachePath)
	assert.FileExists(t, summary.CachePath)
	assert.Equal(t, filepath.Join(cfg.OutputDir, persist.CacheDir), filepath.Dir(summary.CachePath))

	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "layers"), "types without tables write nothing")
}

func TestRun_SchemaFailureWritesUnvalidated(t *testing.T) {
	dir := writeWorkspace(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "schemas", "ms.json")))
	runner, cfg := newRunner(t, dir, false)

	summary, err := runner.Run(context.Background(), migrate.Options{})
	require.NoError(t, err)

	ms := typeSummary(t, summary, config.ManuscriptObjects)
	assert.Equal(t, 2, ms.Written, "records are written without validation")
	assert.Equal(t, 0, ms.Invalid)
	assert.Equal(t, 1, ms.Failed)
	assert.Contains(t, ms.SchemaError, "schema fetch")
	assert.Contains(t, summary.Unvalidated(), config.ManuscriptObjects)

	outDir := filepath.Join(cfg.OutputDir, "manuscript_objects")
	assert.FileExists(t, filepath.Join(outDir, "z1.json"))
	assert.FileExists(t, filepath.Join(outDir, "z2.json"))
	assert.NoFileExists(t, filepath.Join(outDir, "manuscript_objects_validation_errors.json"), "nothing was validated")
}

func TestRun_FileNameConflict(t *testing.T) {
	dir := writeWorkspace(t)
	csv := `ark,Shelfmark
ark:/21198/z1,Sinai Arabic 1
ark:/99999/z1,Sinai Arabic 2
ark:/21198/z2,Sinai Arabic 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "ms.csv"), []byte(csv), 0o644))
	runner, cfg := newRunner(t, dir, false)

	summary, err := runner.Run(context.Background(), migrate.Options{RecordTypes: []config.RecordType{config.ManuscriptObjects}})
	require.NoError(t, err)

	ms := typeSummary(t, summary, config.ManuscriptObjects)
	assert.Equal(t, 2, ms.Written)
	assert.Equal(t, 1, ms.Failed, "the second ark ending in z1 is not saved")

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "manuscript_objects", "z1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ark": "ark:/21198/z1"`, "the first record keeps the file")
	assert.NotContains(t, string(data), "ark:/99999/z1")
}

func TestRun_SelectedTypes(t *testing.T) {
	dir := writeWorkspace(t)
	runner, _ := newRunner(t, dir, false)

	summary, err := runner.Run(context.Background(), migrate.Options{
		RecordTypes: []config.RecordType{config.ManuscriptObjects},
	})
	require.NoError(t, err)
	require.Len(t, summary.Types, 1)
	assert.Empty(t, summary.Unvalidated())
}

func TestRun_FromCache(t *testing.T) {
	dir := writeWorkspace(t)
	runner, cfg := newRunner(t, dir, false)

	first, err := runner.Run(context.Background(), migrate.Options{RecordTypes: []config.RecordType{config.ManuscriptObjects}})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "data", "ms.csv")))
	require.NoError(t, os.RemoveAll(filepath.Join(cfg.OutputDir, "manuscript_objects")))

	second, err := runner.Run(context.Background(), migrate.Options{
		RecordTypes: []config.RecordType{config.ManuscriptObjects},
		CachePath:   first.CachePath,
	})
	require.NoError(t, err)
	assert.Equal(t, typeSummary(t, first, config.ManuscriptObjects), typeSummary(t, second, config.ManuscriptObjects))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "manuscript_objects", "z1.json"))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DryRun(t *testing.T) {
	dir := writeWorkspace(t)
	runner, cfg := newRunner(t, dir, true)

	summary, err := runner.Run(context.Background(), migrate.Options{})
	require.NoError(t, err)

	ms := typeSummary(t, summary, config.ManuscriptObjects)
	assert.Equal(t, 0, ms.Invalid, "no schema is fetched in a dry run")
	assert.Equal(t, 1, ms.Failed)
	assert.Empty(t, ms.SchemaError)

	_, err = os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(err), "dry run must not write output")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, dir string, cfg *config.Config)
		opts    func(dir string) migrate.Options
		wantErr error
	}{
		{
			name: "missing source file aborts before any output",
			prepare: func(t *testing.T, dir string, _ *config.Config) {
				require.NoError(t, os.Remove(filepath.Join(dir, "data", "ms.csv")))
			},
			wantErr: errs.ErrSourceUnavailable,
		},
		{
			name: "record write failure propagates",
			prepare: func(t *testing.T, _ string, cfg *config.Config) {
				require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "manuscript_objects"), nil, 0o644))
			},
		},
		{
			name: "unreadable cache snapshot aborts",
			opts: func(dir string) migrate.Options {
				return migrate.Options{CachePath: filepath.Join(dir, "nope.json")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeWorkspace(t)
			runner, cfg := newRunner(t, dir, false)
			if tt.prepare != nil {
				tt.prepare(t, dir, cfg)
			}
			opts := migrate.Options{}
			if tt.opts != nil {
				opts = tt.opts(dir)
			}

			_, err := runner.Run(context.Background(), opts)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeWorkspace(t)
	runner, _ := newRunner(t, dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Run(ctx, migrate.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
