// SPDX-License-Identifier: Apache-2.0

// Package transform turns canonical table rows into ordered output records.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
)

// DefaultListDelimiter splits list fields with no configured delimiter.
const DefaultListDelimiter = "|"

// maxExactInteger bounds the integers a float64 source value holds exactly.
const maxExactInteger = 1 << 53

// Build walks order and copies each key present in fields, falling back to
// defaults. Keys outside order are dropped; keys found in neither map are omitted.
func Build(fields map[string]any, order []string, defaults map[string]any) *Record {
	rec := NewRecord()
	for _, key := range order {
		if v, ok := fields[key]; ok {
			rec.Set(key, v)
			continue
		}
		if v, ok := defaults[key]; ok {
			rec.Set(key, v)
		}
	}
	return rec
}

// Transformer converts rows of one table into output records.
type Transformer struct {
	cfg    *config.Config
	fields map[string]config.FieldConfig
}

// New creates a Transformer for a table with the given field definitions.
// cfg supplies the rights statements and may be nil for the defaults.
func New(cfg *config.Config, fields map[string]config.FieldConfig) *Transformer {
	return &Transformer{cfg: cfg, fields: fields}
}

// Transform builds the rt record for row.
func (tr *Transformer) Transform(row table.Row, rt config.RecordType) (*Record, error) {
	order, ok := config.FieldOrder(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownRecordType, rt)
	}
	mapped, err := tr.mapFields(row)
	if err != nil {
		return nil, err
	}
	rec := Build(mapped, order, tr.cfg.AdminDefaults(rt))
	if rec.Ark() == "" {
		return nil, errs.ErrMissingArk
	}
	return rec, nil
}

// mapFields renames and converts row fields according to the field definitions.
func (tr *Transformer) mapFields(row table.Row) (map[string]any, error) {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(map[string]any, len(row))
	from := make(map[string]string, len(row))
	for _, name := range names {
		fc := tr.fields[name]
		if fc.Skip {
			continue
		}
		v, ok, err := convert(name, row[name], fc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		target := fc.Target
		if target == "" {
			target = name
		}
		if prev, dup := from[target]; dup {
			return nil, fmt.Errorf("%w: fields %q and %q both map to %q", errs.ErrFieldConversion, prev, name, target)
		}
		from[target] = name
		out[target] = v
	}
	return out, nil
}

// convert returns the output value for v and false when the field should be omitted.
func convert(name string, v table.Value, fc config.FieldConfig) (any, bool, error) {
	if v.IsAbsent() {
		return nil, false, nil
	}
	raw := v.Raw()
	s, isString := raw.(string)

	fail := func(format string, args ...any) (any, bool, error) {
		return nil, false, fmt.Errorf("%w: field %q: %s", errs.ErrFieldConversion, name, fmt.Sprintf(format, args...))
	}

	switch fc.Type {
	case "", config.FieldString:
		return raw, true, nil

	case config.FieldList:
		if list, ok := raw.([]any); ok {
			return list, len(list) > 0, nil
		}
		if !isString {
			return []any{raw}, true, nil
		}
		delim := fc.Delimiter
		if delim == "" {
			delim = DefaultListDelimiter
		}
		var list []any
		for _, part := range strings.Split(s, delim) {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return list, len(list) > 0, nil

	case config.FieldBoolean:
		if b, ok := raw.(bool); ok {
			return b, true, nil
		}
		if !isString {
			return fail("cannot convert %T to boolean", raw)
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1", "x", "checked":
			return true, true, nil
		case "false", "no", "n", "0":
			return false, true, nil
		}
		return fail("%q is not a boolean", s)

	case config.FieldInteger:
		switch n := raw.(type) {
		case float64:
			if n != math.Trunc(n) {
				return fail("%v is not an integer", n)
			}
			if math.Abs(n) > maxExactInteger {
				return fail("%v is outside the exactly representable integer range", n)
			}
			return int64(n), true, nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return fail("%q is not an integer", n)
			}
			return i, true, nil
		}
		return fail("cannot convert %T to integer", raw)

	case config.FieldNumber:
		switch n := raw.(type) {
		case float64:
			return n, true, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return fail("%q is not a number", n)
			}
			return f, true, nil
		}
		return fail("cannot convert %T to number", raw)

	case config.FieldJSON:
		if !isString {
			return raw, true, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return fail("invalid JSON: %v", err)
		}
		return decoded, decoded != nil, nil
	}
	return fail("unknown field type %q", fc.Type)
}
