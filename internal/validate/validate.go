// SPDX-License-Identifier: Apache-2.0

// Package validate checks output records against per-record-type JSON
// Schemas. Only failing records produce a Result, so a run's validation log
// is a sparse list of errors.
package validate

import (
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// Record is the view of an output record the validator needs.
type Record interface {
	Ark() string
	Object() (map[string]any, error)
}

// Unit is one entry of the basic output format.
type Unit struct {
	KeywordLocation  string `json:"keywordLocation"`
	InstanceLocation string `json:"instanceLocation"`
	Error            string `json:"error"`
}

// Result describes a record that failed validation.
type Result struct {
	RecordArk string `json:"record_ark"`
	Valid     bool   `json:"valid"`
	Errors    []Unit `json:"errors"`
}

// Validate evaluates rec against schema. It returns nil when the record
// conforms, or when there is no schema to evaluate against.
func Validate(rec Record, schema *Schema) *Result {
	if schema == nil || schema.compiled == nil {
		return nil
	}
	obj, err := rec.Object()
	if err != nil {
		return &Result{RecordArk: rec.Ark(), Errors: []Unit{{Error: err.Error()}}}
	}
	if err := schema.compiled.Validate(obj); err != nil {
		return &Result{RecordArk: rec.Ark(), Errors: basicUnits(err)}
	}
	return nil
}

// Log accumulates failing results across a run.
type Log []*Result

// Add appends r when it is non-nil and reports whether it did.
func (l *Log) Add(r *Result) bool {
	if r == nil {
		return false
	}
	*l = append(*l, r)
	return true
}

// basicUnits flattens a validation error into basic output units, one per
// failing keyword. Units that only group their causes are left out.
func basicUnits(err error) []Unit {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []Unit{{Error: err.Error()}}
	}
	out := verr.BasicOutput()

	var units []Unit
	for _, u := range out.Errors {
		if u.Error == nil || grouping(u.Error.Kind) {
			continue
		}
		units = append(units, Unit{
			KeywordLocation:  u.KeywordLocation,
			InstanceLocation: u.InstanceLocation,
			Error:            u.Error.String(),
		})
	}
	if len(units) == 0 {
		units = append(units, Unit{
			KeywordLocation:  out.KeywordLocation,
			InstanceLocation: out.InstanceLocation,
			Error:            verr.Error(),
		})
	}
	return units
}

func grouping(k jsonschema.ErrorKind) bool {
	switch k.(type) {
	case *kind.Group, *kind.Schema:
		return true
	}
	return false
}
