// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Record is a JSON object that remembers key insertion order.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{values: map[string]any{}}
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (r *Record) Set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	return slices.Clone(r.keys)
}

func (r *Record) Len() int {
	return len(r.keys)
}

// Ark returns the record's ark, or "" when it has none.
func (r *Record) Ark() string {
	s, _ := r.values["ark"].(string)
	return s
}

// Object returns the record as a plain JSON object (map[string]any with
// JSON-native value types), suitable for schema evaluation.
func (r *Record) Object() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// MarshalJSON writes keys in order and leaves non-ASCII text and HTML
// characters unescaped. encoding/json escapes HTML characters again in the
// output of a Marshaler, so callers that need them verbatim encode with an
// Encoder whose SetEscapeHTML is false.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalRaw(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalRaw(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its top-level key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: want JSON object, got %v", tok)
	}
	*r = Record{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
