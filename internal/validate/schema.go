// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/dryrun"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
)

// inlineBase names schemas compiled from memory. Relative $refs in them
// cannot be resolved.
const inlineBase = "mem://msmigrate/"

// Schema is a compiled schema for one record type.
type Schema struct {
	RecordType config.RecordType
	Location   string
	compiled   *jsonschema.Schema
}

// Compile parses and compiles a schema document held in memory. References
// to other documents are not followed.
func Compile(rt config.RecordType, data []byte) (*Schema, error) {
	name := string(rt)
	if name == "" {
		name = "schema"
	}
	return compile(rt, "", inlineBase+name+".json", data, nil)
}

func compile(rt config.RecordType, location, base string, data []byte, loader jsonschema.URLLoader) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", errs.ErrSchemaFetch, rt, err)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if loader != nil {
		c.UseLoader(loader)
	}
	if err := c.AddResource(base, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrSchemaFetch, rt, err)
	}
	compiled, err := c.Compile(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: compile: %w", errs.ErrSchemaFetch, rt, err)
	}
	return &Schema{RecordType: rt, Location: location, compiled: compiled}, nil
}

// Loader fetches and compiles schema documents from http(s) URLs or local paths.
type Loader struct {
	client *http.Client
	policy *dryrun.Policy
	logger *slog.Logger
	cache  map[string]*Schema
}

// NewLoader creates a Loader. Nil arguments select http.DefaultClient, a
// policy that never suppresses, and a discarding logger.
func NewLoader(client *http.Client, policy *dryrun.Policy, logger *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{client: client, policy: policy, logger: logger, cache: map[string]*Schema{}}
}

// Load returns the compiled schema for rt found at location. Each location is
// fetched once per Loader. In dry-run mode nothing is fetched and the result is nil.
func (l *Loader) Load(ctx context.Context, rt config.RecordType, location string) (*Schema, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: no schema configured for %s", errs.ErrSchemaFetch, rt)
	}
	if s, ok := l.cache[location]; ok {
		return s, nil
	}

	var schema *Schema
	err := l.policy.Do("initialize_schema", func() error {
		l.logger.Info("fetching schema", "record_type", rt, "location", location)
		data, err := l.fetch(ctx, location)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrSchemaFetch, rt, err)
		}
		base, err := baseURI(location)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrSchemaFetch, rt, err)
		}
		schema, err = compile(rt, location, base, data, refLoader{ctx: ctx, l: l})
		return err
	})
	if err != nil {
		return nil, err
	}
	if schema != nil {
		l.cache[location] = schema
	}
	return schema, nil
}

// refLoader resolves $refs pointing outside the root document.
type refLoader struct {
	ctx context.Context
	l   *Loader
}

func (r refLoader) Load(ref string) (any, error) {
	loc := ref
	if strings.HasPrefix(ref, "file://") {
		p, err := jsonschema.FileLoader{}.ToFile(ref)
		if err != nil {
			return nil, err
		}
		loc = p
	}
	r.l.logger.Debug("fetching referenced schema", "location", loc)
	data, err := r.l.fetch(r.ctx, loc)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if !isRemote(location) {
		return os.ReadFile(location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", location, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// baseURI gives the absolute URI relative $refs resolve against.
func baseURI(location string) (string, error) {
	if isRemote(location) {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
