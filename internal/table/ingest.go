// SPDX-License-Identifier: Apache-2.0

package table

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
)

// Source reads one table's rows into canonical Data.
type Source interface {
	Name() string
	CanHandle(mode config.Mode) bool
	Ingest(ctx context.Context, tc *config.TableConfig) (Data, error)
}

// Ingester fills tables from the first registered source able to handle the run mode.
type Ingester struct {
	sources []Source
	logger  *slog.Logger
}

// NewIngester creates an Ingester. A nil logger discards output.
func NewIngester(logger *slog.Logger, sources ...Source) *Ingester {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingester{sources: sources, logger: logger}
}

// Ingest reads the table described by tc using the source registered for mode.
func (in *Ingester) Ingest(ctx context.Context, mode config.Mode, tc *config.TableConfig) (*Table, error) {
	src, err := in.selectSource(mode)
	if err != nil {
		return nil, err
	}
	in.logger.Info("ingesting table", "table", tc.Name, "source", src.Name(), "location", tc.Location(mode))

	data, err := src.Ingest(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", tc.Name, err)
	}
	in.logger.Debug("ingested table", "table", tc.Name, "records", len(data))

	return &Table{
		Name:           tc.Name,
		RecordType:     tc.RecordType,
		SourceMode:     mode,
		SourceLocation: tc.Location(mode),
		Fields:         tc.Fields,
		Data:           data,
	}, nil
}

// IngestAll ingests every configured table, one after another in name order.
// The first failure aborts.
func (in *Ingester) IngestAll(ctx context.Context, cfg *config.Config) (Tables, error) {
	tables := make(Tables, len(cfg.Tables))
	for _, name := range cfg.TableNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := in.Ingest(ctx, cfg.Mode, cfg.Tables[name])
		if err != nil {
			return nil, err
		}
		tables[name] = t
	}
	return tables, nil
}

func (in *Ingester) selectSource(mode config.Mode) (Source, error) {
	for _, src := range in.sources {
		if src.CanHandle(mode) {
			return src, nil
		}
	}
	return nil, fmt.Errorf("no source registered for mode %q", mode)
}

// RegisteredSources returns the names of the registered sources.
func (in *Ingester) RegisteredSources() []string {
	names := make([]string, len(in.sources))
	for i, src := range in.sources {
		names[i] = src.Name()
	}
	return names
}
