// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
)

// DefaultNAValues are the cell contents read as missing, matching the
// sentinels spreadsheet exports and dataframe tooling write for empty data.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a",
	"nan", "null",
}

// FileSource reads delimited text files with a header row.
// Every cell is kept as a string; no type inference happens here.
type FileSource struct{}

// NewFileSource creates a new FileSource.
func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Name() string {
	return "file"
}

func (s *FileSource) CanHandle(mode config.Mode) bool {
	return mode == config.ModeCSV
}

// Ingest parses tc.CSV. The record id is the index column value when
// tc.IndexCol is set (the column is then dropped from the row), otherwise
// the 0-based data row position.
func (s *FileSource) Ingest(ctx context.Context, tc *config.TableConfig) (table.Data, error) {
	f, err := os.Open(tc.CSV)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSourceUnavailable, err)
	}
	defer f.Close()

	return s.Read(ctx, f, tc)
}

// Read parses delimited text from r using the settings in tc.
func (s *FileSource) Read(ctx context.Context, r io.Reader, tc *config.TableConfig) (table.Data, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiterFor(tc)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: no header row", errs.ErrMalformedTable, tc.CSV)
		}
		return nil, fmt.Errorf("%w: %s: read header: %w", errs.ErrMalformedTable, tc.CSV, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	indexPos := -1
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("%w: %s: duplicate column %q", errs.ErrMalformedTable, tc.CSV, name)
		}
		seen[name] = true
		if tc.IndexCol != "" && name == tc.IndexCol {
			indexPos = i
		}
	}
	if tc.IndexCol != "" && indexPos < 0 {
		return nil, fmt.Errorf("%w: %s: index column %q not in header", errs.ErrConfiguration, tc.CSV, tc.IndexCol)
	}

	na := naSet(tc.NAValues)
	data := table.Data{}
	for pos := 0; ; pos++ {
		if pos%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errs.ErrMalformedTable, tc.CSV, err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: %s: line %d has %d cells, header has %d", errs.ErrMalformedTable, tc.CSV, line, len(record), len(header))
		}

		row := make(table.Row, len(header))
		for i, name := range header {
			if i == indexPos {
				continue
			}
			if i >= len(record) || na[record[i]] {
				row[name] = table.Absent()
				continue
			}
			row[name] = table.String(record[i])
		}

		id := strconv.Itoa(pos)
		if indexPos >= 0 {
			if indexPos >= len(record) || na[record[indexPos]] {
				return nil, fmt.Errorf("%w: %s: data row %d has no value in index column %q", errs.ErrInvalidRecordID, tc.CSV, pos, tc.IndexCol)
			}
			id = record[indexPos]
		}
		if _, dup := data[id]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate record id %q", errs.ErrInvalidRecordID, tc.CSV, id)
		}
		data[id] = row
	}
	return data, nil
}

func delimiterFor(tc *config.TableConfig) rune {
	if tc.Delimiter != "" {
		if tc.Delimiter == `\t` {
			return '\t'
		}
		return []rune(tc.Delimiter)[0]
	}
	switch strings.ToLower(filepath.Ext(tc.CSV)) {
	case ".tsv", ".tab":
		return '\t'
	}
	return ','
}

func naSet(values []string) map[string]bool {
	if values == nil {
		values = DefaultNAValues
	}
	set := make(map[string]bool, len(values)+1)
	set[""] = true
	for _, v := range values {
		set[v] = true
	}
	return set
}
