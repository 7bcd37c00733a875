// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/sinai-manuscripts/msmigrate/internal/errs"
)

// RecordType names one of the three output record kinds.
type RecordType string

const (
	ManuscriptObjects RecordType = "manuscript_objects"
	Layers            RecordType = "layers"
	TextUnits         RecordType = "text_units"
)

// SelectAll is the batch selector that expands to every record type.
const SelectAll = "all"

var recordTypeAliases = map[string]RecordType{
	"manuscript_objects": ManuscriptObjects,
	"manuscript-object":  ManuscriptObjects,
	"manuscript_object":  ManuscriptObjects,
	"layers":             Layers,
	"layer":              Layers,
	"text_units":         TextUnits,
	"text-unit":          TextUnits,
	"text_unit":          TextUnits,
}

// RecordTypes returns the concrete record types in processing order.
func RecordTypes() []RecordType {
	return []RecordType{ManuscriptObjects, Layers, TextUnits}
}

// ParseRecordType resolves a record type name or alias. "all" is rejected:
// it is a batch directive, not a type.
func ParseRecordType(s string) (RecordType, error) {
	if rt, ok := recordTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rt, nil
	}
	return "", fmt.Errorf("%w: %q", errs.ErrUnknownRecordType, s)
}

// SelectRecordTypes expands a selector into concrete record types.
func SelectRecordTypes(selector string) ([]RecordType, error) {
	if strings.EqualFold(strings.TrimSpace(selector), SelectAll) {
		return RecordTypes(), nil
	}
	rt, err := ParseRecordType(selector)
	if err != nil {
		return nil, err
	}
	return []RecordType{rt}, nil
}
