// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mehanizm/airtable"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
)

// SourceRef addresses rows on the remote table service.
type SourceRef struct {
	Base  string `json:"base"`
	Table string `json:"table"`
	// View is empty when rows are not filtered by a saved view.
	View string `json:"view,omitempty"`
}

// ParseSourceURL splits a URL of the form
// <service-domain>/<base-id>/<table-id>[/<view-id>][?query] into its keys.
// The scheme is optional; surrounding whitespace and the query are dropped.
func ParseSourceURL(raw string) (SourceRef, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+len("://"):]
	}
	parts := strings.Split(strings.TrimRight(strings.TrimSpace(s), "/"), "/")
	if len(parts) < 3 || len(parts) > 4 {
		return SourceRef{}, fmt.Errorf("%w: %q: want <domain>/<base>/<table>[/<view>]", errs.ErrMalformedSourceURL, raw)
	}
	keys := parts[1:]
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return SourceRef{}, fmt.Errorf("%w: %q: empty path segment", errs.ErrMalformedSourceURL, raw)
		}
	}

	ref := SourceRef{Base: keys[0], Table: keys[1]}
	if len(keys) == 3 {
		ref.View = keys[2]
	}
	return ref, nil
}

// RemoteRecord is one row as returned by the remote service.
type RemoteRecord struct {
	ID     string
	Fields map[string]any
}

// RecordLister lists every record of a remote table, optionally filtered by view.
type RecordLister interface {
	ListRecords(ctx context.Context, ref SourceRef) ([]RemoteRecord, error)
}

// AirtableClient lists records through the Airtable REST API.
type AirtableClient struct {
	client *airtable.Client
}

// AirtableOption configures an AirtableClient.
type AirtableOption func(*airtable.Client) error

// WithBaseURL points the client at another API endpoint, such as a proxy or
// a test server. The URL needs an http or https scheme.
func WithBaseURL(baseURL string) AirtableOption {
	return func(c *airtable.Client) error {
		if err := c.SetBaseURL(baseURL); err != nil {
			return fmt.Errorf("%w: airtable base URL: %w", errs.ErrConfiguration, err)
		}
		return nil
	}
}

// WithHTTPClient replaces the client's HTTP client.
func WithHTTPClient(hc *http.Client) AirtableOption {
	return func(c *airtable.Client) error {
		c.SetCustomClient(hc)
		return nil
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond int) AirtableOption {
	return func(c *airtable.Client) error {
		if perSecond <= 0 {
			return fmt.Errorf("%w: airtable rate limit must be positive", errs.ErrConfiguration)
		}
		c.SetRateLimit(perSecond)
		return nil
	}
}

// NewAirtableClient creates a client authenticated with apiKey.
func NewAirtableClient(apiKey string, opts ...AirtableOption) (*AirtableClient, error) {
	client := airtable.NewClient(apiKey)
	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}
	return &AirtableClient{client: client}, nil
}

// ListRecords pages through the table until the service stops returning an offset.
func (c *AirtableClient) ListRecords(ctx context.Context, ref SourceRef) ([]RemoteRecord, error) {
	tbl := c.client.GetTable(ref.Base, ref.Table)

	var out []RemoteRecord
	offset := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := tbl.GetRecords()
		if ref.View != "" {
			query = query.FromView(ref.View)
		}
		if offset != "" {
			query = query.WithOffset(offset)
		}
		page, err := query.DoContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s/%s: %w", errs.ErrSourceUnavailable, ref.Base, ref.Table, err)
		}
		for _, rec := range page.Records {
			out = append(out, RemoteRecord{ID: rec.ID, Fields: rec.Fields})
		}
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

// RemoteSource reads rows from the remote table service. Records already
// omit empty fields, so field maps are taken as they come.
type RemoteSource struct {
	lister RecordLister
	base   string
	logger *slog.Logger
}

// NewRemoteSource creates a RemoteSource. base is the expected base id; a
// table URL pointing elsewhere is logged but still read. A nil logger discards output.
func NewRemoteSource(lister RecordLister, base string, logger *slog.Logger) *RemoteSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RemoteSource{lister: lister, base: base, logger: logger}
}

func (s *RemoteSource) Name() string {
	return "airtable"
}

func (s *RemoteSource) CanHandle(mode config.Mode) bool {
	return mode == config.ModeAirtable
}

func (s *RemoteSource) Ingest(ctx context.Context, tc *config.TableConfig) (table.Data, error) {
	ref, err := ParseSourceURL(tc.Airtable)
	if err != nil {
		return nil, err
	}
	if s.base != "" && ref.Base != s.base {
		s.logger.Warn("table URL points at a different base", "table", tc.Name, "base", ref.Base, "configured_base", s.base)
	}

	records, err := s.lister.ListRecords(ctx, ref)
	if err != nil {
		return nil, err
	}

	data := make(table.Data, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: %s/%s: record without id", errs.ErrInvalidRecordID, ref.Base, ref.Table)
		}
		if _, dup := data[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s/%s: duplicate record id %q", errs.ErrInvalidRecordID, ref.Base, ref.Table, rec.ID)
		}
		row := make(table.Row, len(rec.Fields))
		for name, v := range rec.Fields {
			row[name] = table.Of(v)
		}
		data[rec.ID] = row
	}
	return data, nil
}
