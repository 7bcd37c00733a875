// SPDX-License-Identifier: Apache-2.0

// Package persist writes records, table cache snapshots and validation logs
// as indented JSON files under the run's output directory.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sinai-manuscripts/msmigrate/internal/dryrun"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
)

// CacheDir is the sub directory holding table cache snapshots.
const CacheDir = "table_cache"

// Store writes JSON documents under an output root. Every write goes through
// the dry-run policy.
type Store struct {
	root   string
	policy *dryrun.Policy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used to name cache snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at root.
func New(root string, policy *dryrun.Policy, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{root: root, policy: policy, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the output directory.
func (s *Store) Root() string { return s.root }

// SaveRecord writes v to <root>/<subDir>/<fileName>.json and returns the path.
func (s *Store) SaveRecord(v any, fileName, subDir string) (string, error) {
	dest := filepath.Join(s.root, subDir, fileName+".json")
	err := s.policy.Do("save_record", func() error {
		s.logger.Debug("saving record", "path", dest)
		return writeJSON(dest, v)
	})
	return dest, err
}

// CacheTables writes a timestamped snapshot of tables to
// <root>/table_cache/table_cache_<YYYYMMDD-HHMMSS>.json and returns its path.
func (s *Store) CacheTables(tables table.Tables) (string, error) {
	name := "table_cache_" + s.now().Format("20060102-150405") + ".json"
	dest := filepath.Join(s.root, CacheDir, name)
	err := s.policy.Do("cache_table_snapshot", func() error {
		s.logger.Info("caching tables", "path", dest, "tables", len(tables))
		return writeJSON(dest, tables)
	})
	return dest, err
}

// LoadCachedTables reads a snapshot written by CacheTables.
func LoadCachedTables(p string) (table.Tables, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read table cache: %w", err)
	}
	var tables table.Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("decode table cache %s: %w", p, err)
	}
	for name, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("table cache %s: table %q is null", p, name)
		}
		if t.Name == "" {
			t.Name = name
		}
		if t.Data == nil {
			t.Data = table.Data{}
		}
	}
	return tables, nil
}

// SaveValidationLog writes log to <root>/<subDir>/<prefix>_validation_errors.json.
func (s *Store) SaveValidationLog(log any, subDir, prefix string) (string, error) {
	dest := filepath.Join(s.root, subDir, prefix+"_validation_errors.json")
	err := s.policy.Do("save_validation_log", func() error {
		s.logger.Info("saving validation log", "path", dest)
		return writeJSON(dest, log)
	})
	return dest, err
}

// RecordFileName derives a file name from an ark by taking its last path
// segment: "ark:/21198/z1abc" becomes "z1abc". Arks from different naming
// authorities can share a name; SaveRecord overwrites, so callers check.
func RecordFileName(ark string) string {
	name := path.Base(strings.TrimRight(strings.TrimSpace(ark), "/"))
	name = strings.NewReplacer(":", "_", "\\", "_").Replace(name)
	if name == "." || name == "" || name == "_" {
		return "unnamed"
	}
	return name
}

// writeJSON encodes v with two-space indentation and replaces dest atomically.
func writeJSON(dest string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", dest, err)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
