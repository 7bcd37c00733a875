// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/validate"
)

// MetadataValidateRecord describes the validate_record tool.
var MetadataValidateRecord = &mcp.Tool{
	Name: "validate_record",
	Description: "Validate an output record against an inline JSON Schema. " +
		"Returns valid=true for a conforming record. Otherwise the result lists errors in the " +
		"basic output format (keywordLocation, instanceLocation, error), keyed by the record's ark.",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"record", "schema"},
		Properties: map[string]*jsonschema.Schema{
			"record": {
				Type:        "object",
				Description: "The output record to check.",
			},
			"schema": {
				Type:        "object",
				Description: "JSON Schema document for the record's type. References must be resolvable within the document.",
			},
			"record_type": {
				Type:        "string",
				Description: "Optional record type, used only to label errors.",
			},
		},
	},
}

// InputValidateRecord is the input for the ValidateRecord tool.
type InputValidateRecord struct {
	Record     map[string]any `json:"record"`
	Schema     map[string]any `json:"schema"`
	RecordType string         `json:"record_type"`
}

// OutputValidateRecord is the output for the ValidateRecord tool.
type OutputValidateRecord struct {
	Valid  bool             `json:"valid"`
	Result *validate.Result `json:"result,omitempty"`
}

// objectRecord adapts a decoded JSON object to the validator's record view.
type objectRecord map[string]any

func (r objectRecord) Ark() string {
	s, _ := r["ark"].(string)
	return s
}

func (r objectRecord) Object() (map[string]any, error) { return r, nil }

// ValidateRecord checks a record against an inline schema.
func ValidateRecord(_ context.Context, _ *mcp.CallToolRequest, input InputValidateRecord) (*mcp.CallToolResult, OutputValidateRecord, error) {
	if input.Record == nil {
		return nil, OutputValidateRecord{}, fmt.Errorf("record is required")
	}
	if input.Schema == nil {
		return nil, OutputValidateRecord{}, fmt.Errorf("schema is required")
	}

	rt := config.RecordType(input.RecordType)
	if input.RecordType != "" {
		parsed, err := config.ParseRecordType(input.RecordType)
		if err != nil {
			return nil, OutputValidateRecord{}, err
		}
		rt = parsed
	}

	data, err := json.Marshal(input.Schema)
	if err != nil {
		return nil, OutputValidateRecord{}, err
	}
	schema, err := validate.Compile(rt, data)
	if err != nil {
		return nil, OutputValidateRecord{}, err
	}

	result := validate.Validate(objectRecord(input.Record), schema)
	return nil, OutputValidateRecord{Valid: result == nil, Result: result}, nil
}
