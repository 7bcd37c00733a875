// SPDX-License-Identifier: Apache-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/goccy/go-yaml"

	"github.com/sinai-manuscripts/msmigrate/internal/errs"
)

//go:embed schema.cue
var configSchema string

// Overrides are command-line values that take precedence over the document.
type Overrides struct {
	Mode      string
	OutputDir string
}

// Load reads the configuration document at path, checks it against the
// embedded schema, resolves relative table and field paths against the
// document's directory and loads every table's field definitions.
func Load(path string, ov Overrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", errs.ErrConfiguration, path, err)
	}
	if err := checkSchema(path, data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", errs.ErrConfiguration, path, err)
	}
	cfg.Dir = filepath.Dir(path)

	if ov.Mode != "" {
		cfg.Mode = Mode(ov.Mode)
	}
	if mode, err := ParseMode(string(cfg.Mode)); err == nil {
		cfg.Mode = mode
	}
	switch {
	case ov.OutputDir != "":
		cfg.OutputDir = ov.OutputDir
	case cfg.OutputDir == "":
		cfg.OutputDir = "."
	default:
		cfg.OutputDir = resolveRelative(cfg.Dir, cfg.OutputDir)
	}

	for name, t := range cfg.Tables {
		if t == nil {
			continue
		}
		t.Name = name
		if t.RecordType == "" {
			t.RecordType = RecordType(name)
		}
		if rt, err := ParseRecordType(string(t.RecordType)); err == nil {
			t.RecordType = rt
		}
		t.CSV = resolveRelative(cfg.Dir, t.CSV)
		t.FieldsPath = resolveRelative(cfg.Dir, t.FieldsPath)
	}
	schemas := make(map[string]string, len(cfg.Schemas))
	for key, loc := range cfg.Schemas {
		if rt, err := ParseRecordType(key); err == nil {
			key = string(rt)
		}
		if !strings.Contains(loc, "://") {
			loc = resolveRelative(cfg.Dir, loc)
		}
		schemas[key] = loc
	}
	cfg.Schemas = schemas

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, name := range cfg.TableNames() {
		t := cfg.Tables[name]
		fields, err := LoadFields(t.FieldsPath)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		t.Fields = fields
	}
	return &cfg, nil
}

// LoadFields reads a field-definition document.
func LoadFields(path string) (map[string]FieldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read field definitions %s: %w", errs.ErrConfiguration, path, err)
	}
	fields := map[string]FieldConfig{}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: decode field definitions %s: %w", errs.ErrConfiguration, path, err)
	}
	for name, fc := range fields {
		switch fc.Type {
		case "", FieldString, FieldList, FieldBoolean, FieldInteger, FieldNumber, FieldJSON:
		default:
			return nil, fmt.Errorf("%w: field %q in %s has unknown type %q", errs.ErrConfiguration, name, path, fc.Type)
		}
	}
	return fields, nil
}

func checkSchema(path string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("%w: compile config schema: %w", errs.ErrConfiguration, err)
	}
	if err := cueyaml.Validate(data, schema); err != nil {
		return fmt.Errorf("%w: %s: %s", errs.ErrConfiguration, path, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// resolveRelative joins p onto dir unless p is empty or already rooted at "/".
func resolveRelative(dir, p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	return filepath.Join(dir, p)
}
