// SPDX-License-Identifier: Apache-2.0

// Package table defines the canonical in-memory table shared by every source:
// record id -> field name -> Value. Sources normalize their own encodings of
// missing data into the absent Value at the ingestion boundary, so code
// downstream never branches on where a row came from.
package table

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
)

// Value is a field value or the explicit absent marker.
type Value struct {
	raw     any
	present bool
}

// Absent returns the absent marker.
func Absent() Value { return Value{} }

// String wraps a string value.
func String(s string) Value { return Value{raw: s, present: true} }

// Of wraps any JSON-compatible value. nil becomes Absent.
func Of(v any) Value {
	if v == nil {
		return Absent()
	}
	return Value{raw: v, present: true}
}

// IsAbsent reports whether v is the absent marker.
func (v Value) IsAbsent() bool { return !v.present }

// Raw returns the wrapped value, or nil when absent.
func (v Value) Raw() any { return v.raw }

// Str returns the value when it holds a string.
func (v Value) Str() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok && v.present
}

// MarshalJSON encodes absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON decodes null as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Absent()
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Of(raw)
	return nil
}

// Row maps field names to values.
type Row map[string]Value

// Data maps record identifiers to rows.
type Data map[string]Row

// IDs returns the record identifiers in sorted order.
func (d Data) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Table is one ingested source table.
type Table struct {
	Name           string                        `json:"name"`
	RecordType     config.RecordType             `json:"record_type"`
	SourceMode     config.Mode                   `json:"source_mode"`
	SourceLocation string                        `json:"source_location"`
	Fields         map[string]config.FieldConfig `json:"fields"`
	Data           Data                          `json:"data"`
}

// Tables maps table names to tables.
type Tables map[string]*Table

// Names returns the table names in sorted order.
func (ts Tables) Names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OfType returns the tables holding rt rows, in name order.
func (ts Tables) OfType(rt config.RecordType) []*Table {
	var out []*Table
	for _, name := range ts.Names() {
		if t := ts[name]; t.RecordType == rt {
			out = append(out, t)
		}
	}
	return out
}
