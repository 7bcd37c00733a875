// SPDX-License-Identifier: Apache-2.0

// Package migrate runs one end-to-end migration: ingest or reload tables,
// snapshot them, then transform, validate and save every record per record type.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/persist"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
	"github.com/sinai-manuscripts/msmigrate/internal/transform"
	"github.com/sinai-manuscripts/msmigrate/internal/validate"
)

// SchemaLoader fetches the schema for a record type.
type SchemaLoader interface {
	Load(ctx context.Context, rt config.RecordType, location string) (*validate.Schema, error)
}

// Options selects what a run processes.
type Options struct {
	// RecordTypes to migrate, in order. Empty means all of them.
	RecordTypes []config.RecordType
	// CachePath, when set, reloads tables from a snapshot instead of ingesting.
	CachePath string
}

// TypeSummary counts the outcome for one record type.
type TypeSummary struct {
	RecordType config.RecordType `json:"record_type"`
	Written    int               `json:"written"`
	Invalid    int               `json:"invalid"`
	Failed     int               `json:"failed"`
	// SchemaError is set when the type's schema could not be loaded. Its
	// records are written without validation and no validation log is saved.
	SchemaError string `json:"schema_error,omitempty"`
}

// Summary describes a finished run.
type Summary struct {
	RunID     string        `json:"run_id"`
	CachePath string        `json:"cache_path,omitempty"`
	Types     []TypeSummary `json:"types"`
}

// Unvalidated returns the record types whose schema could not be loaded.
func (s Summary) Unvalidated() []config.RecordType {
	var out []config.RecordType
	for _, t := range s.Types {
		if t.SchemaError != "" {
			out = append(out, t.RecordType)
		}
	}
	return out
}

// Runner wires ingestion, transform, validation and persistence together.
type Runner struct {
	cfg      *config.Config
	ingester *table.Ingester
	schemas  SchemaLoader
	store    *persist.Store
	logger   *slog.Logger
	newID    func() string
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(cfg *config.Config, ingester *table.Ingester, schemas SchemaLoader, store *persist.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		cfg:      cfg,
		ingester: ingester,
		schemas:  schemas,
		store:    store,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// Run performs one migration. Ingestion and persistence failures abort the
// run. A schema that cannot be loaded turns off validation for its record
// type only. Records that fail to transform are logged and counted.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{RunID: r.newID()}
	logger := r.logger.With("run_id", summary.RunID)

	if r.cfg == nil {
		return summary, fmt.Errorf("%w: no configuration", errs.ErrConfiguration)
	}
	types := opts.RecordTypes
	if len(types) == 0 {
		types = config.RecordTypes()
	}

	tables, err := r.loadTables(ctx, logger, opts.CachePath)
	if err != nil {
		return summary, err
	}

	cachePath, err := r.store.CacheTables(tables)
	if err != nil {
		return summary, fmt.Errorf("cache tables: %w", err)
	}
	summary.CachePath = cachePath

	for _, rt := range types {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ts, err := r.migrateType(ctx, logger.With("record_type", rt), rt, tables)
		if err != nil {
			return summary, err
		}
		summary.Types = append(summary.Types, ts)
	}

	logger.Info("migration finished", "types", len(summary.Types), "unvalidated", len(summary.Unvalidated()))
	return summary, nil
}

func (r *Runner) loadTables(ctx context.Context, logger *slog.Logger, cachePath string) (table.Tables, error) {
	if cachePath != "" {
		logger.Info("loading tables from cache", "path", cachePath)
		tables, err := persist.LoadCachedTables(cachePath)
		if err != nil {
			return nil, err
		}
		for name, t := range tables {
			if t.Fields == nil {
				if tc, ok := r.cfg.Tables[name]; ok {
					t.Fields = tc.Fields
				}
			}
		}
		return tables, nil
	}
	return r.ingester.IngestAll(ctx, r.cfg)
}

func (r *Runner) migrateType(ctx context.Context, logger *slog.Logger, rt config.RecordType, tables table.Tables) (TypeSummary, error) {
	ts := TypeSummary{RecordType: rt}

	schema, err := r.schemas.Load(ctx, rt, r.cfg.SchemaLocation(rt))
	if err != nil {
		if !errors.Is(err, errs.ErrSchemaFetch) {
			return ts, err
		}
		logger.Error("records will not be validated", "error", err)
		ts.SchemaError = err.Error()
	}

	var log validate.Log
	files := map[string]string{}
	for _, t := range tables.OfType(rt) {
		tr := transform.New(r.cfg, t.Fields)
		for _, id := range t.Data.IDs() {
			rec, err := tr.Transform(t.Data[id], rt)
			if err != nil {
				logger.Warn("record not transformed", "table", t.Name, "record_id", id, "error", err)
				ts.Failed++
				continue
			}

			name := persist.RecordFileName(rec.Ark())
			if prev, taken := files[name]; taken {
				err := fmt.Errorf("%w: %s and %s both save as %s.json", errs.ErrRecordFileConflict, prev, rec.Ark(), name)
				logger.Warn("record not saved", "table", t.Name, "record_id", id, "error", err)
				ts.Failed++
				continue
			}
			files[name] = rec.Ark()

			if log.Add(validate.Validate(rec, schema)) {
				ts.Invalid++
			}
			if _, err := r.store.SaveRecord(rec, name, string(rt)); err != nil {
				return ts, fmt.Errorf("save record %s: %w", rec.Ark(), err)
			}
			ts.Written++
		}
	}

	if ts.SchemaError == "" {
		if log == nil {
			log = validate.Log{}
		}
		if _, err := r.store.SaveValidationLog(log, string(rt), string(rt)); err != nil {
			return ts, fmt.Errorf("save validation log: %w", err)
		}
	}
	logger.Info("record type migrated", "written", ts.Written, "invalid", ts.Invalid, "failed", ts.Failed)
	return ts, nil
}
