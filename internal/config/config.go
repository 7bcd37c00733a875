// SPDX-License-Identifier: Apache-2.0

// Package config holds the run configuration: the source mode, the per-table
// settings and field definitions, schema locations and the administrative
// rights statements. A Config is built once by Load and then passed by
// reference to every component; nothing mutates it after loading.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sinai-manuscripts/msmigrate/internal/errs"
)

// Mode selects where table rows come from.
type Mode string

const (
	// ModeAirtable reads rows from the remote table service.
	ModeAirtable Mode = "airtable"
	// ModeCSV reads rows from local delimited files.
	ModeCSV Mode = "csv"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAirtable, ModeCSV:
		return m, nil
	}
	return "", fmt.Errorf("%w: invalid mode %q (want %q or %q)", errs.ErrConfiguration, s, ModeAirtable, ModeCSV)
}

// Default rights statements merged into every output record.
const (
	DefaultMetadataRights = "Unless otherwise indicated, all metadata is copyright the authors and is released under the Creative Commons Attribution 4.0 International License (CC BY 4.0), https://creativecommons.org/licenses/by/4.0/."
	DefaultImageRights    = "All manuscript images are the property of St. Catherine’s Monastery of the Sinai. No part of these images may be reproduced, reused, or distributed without prior written permission. For permissions and reuse requests, please contact sinai@library.ucla.edu."
)

// FieldType is the output type a source field is converted to.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldList    FieldType = "list"
	FieldBoolean FieldType = "boolean"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldJSON    FieldType = "json"
)

// FieldConfig describes how one source field maps into output records.
type FieldConfig struct {
	// Target is the output key. Empty means the source field name.
	Target string    `yaml:"target,omitempty" json:"target,omitempty"`
	Type   FieldType `yaml:"type,omitempty" json:"type,omitempty"`
	// Delimiter splits list values. Defaults to "|".
	Delimiter string `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	Skip      bool   `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// TableConfig is the configuration of one source table.
type TableConfig struct {
	Name       string     `yaml:"-"`
	RecordType RecordType `yaml:"record_type"`
	CSV        string     `yaml:"csv"`
	Airtable   string     `yaml:"airtable"`
	IndexCol   string     `yaml:"index_col"`
	Delimiter  string     `yaml:"delimiter"`
	// NAValues overrides the default missing-value sentinels for file sources.
	NAValues   []string `yaml:"na_values"`
	FieldsPath string   `yaml:"fields"`

	Fields map[string]FieldConfig `yaml:"-"`
}

// Location returns the source location used for mode.
func (t *TableConfig) Location(mode Mode) string {
	if mode == ModeAirtable {
		return t.Airtable
	}
	return t.CSV
}

// Rights holds the administrative rights statements.
type Rights struct {
	Metadata string `yaml:"metadata"`
	Image    string `yaml:"image"`
}

// Config is the complete run configuration.
type Config struct {
	Mode         Mode                    `yaml:"mode"`
	AirtableBase string                  `yaml:"airtable_base"`
	OutputDir    string                  `yaml:"output_dir"`
	Rights       Rights                  `yaml:"rights"`
	Schemas      map[string]string       `yaml:"schemas"`
	Tables       map[string]*TableConfig `yaml:"tables"`

	// Dir is the directory of the configuration document.
	Dir string `yaml:"-"`
}

// TableNames returns the configured table names in sorted order.
func (c *Config) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TablesFor returns the tables producing records of rt, in name order.
func (c *Config) TablesFor(rt RecordType) []*TableConfig {
	var out []*TableConfig
	for _, name := range c.TableNames() {
		if t := c.Tables[name]; t.RecordType == rt {
			out = append(out, t)
		}
	}
	return out
}

// SchemaLocation returns the schema URL or path configured for rt.
func (c *Config) SchemaLocation(rt RecordType) string {
	return c.Schemas[string(rt)]
}

// Validate checks the semantic constraints the schema check cannot express.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("%w: no tables configured", errs.ErrConfiguration)
	}
	for _, name := range c.TableNames() {
		t := c.Tables[name]
		if t == nil {
			return fmt.Errorf("%w: table %q is empty", errs.ErrConfiguration, name)
		}
		if _, err := ParseRecordType(string(t.RecordType)); err != nil {
			return fmt.Errorf("%w: table %q: %w", errs.ErrConfiguration, name, err)
		}
		if strings.TrimSpace(t.Location(c.Mode)) == "" {
			return fmt.Errorf("%w: table %q has no %s location", errs.ErrConfiguration, name, c.Mode)
		}
	}
	return nil
}
