// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
	"github.com/sinai-manuscripts/msmigrate/internal/transform"
)

// MetadataTransformRecord describes the transform_record tool.
var MetadataTransformRecord = &mcp.Tool{
	Name: "transform_record",
	Description: "Transform one source row into an output record of the given record type. " +
		"Fields are renamed and converted according to field_config, ordered by the record type's " +
		"template, and completed with the administrative rights statements. " +
		"Fields outside the template are dropped. The record must carry an ark.",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"record_type", "fields"},
		Properties: map[string]*jsonschema.Schema{
			"record_type": {
				Type:        "string",
				Description: "Record type of the output record. One of: manuscript_objects, layers, text_units.",
			},
			"fields": {
				Type:        "object",
				Description: "Source row as a flat map of field name to value. null marks an absent value.",
			},
			"field_config": {
				Type:        "object",
				Description: "Optional per-field definitions: target, type (string, list, boolean, integer, number, json), delimiter, skip.",
				AdditionalProperties: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"target":    {Type: "string"},
						"type":      {Type: "string", Enum: []any{"string", "list", "boolean", "integer", "number", "json"}},
						"delimiter": {Type: "string"},
						"skip":      {Type: "boolean"},
					},
				},
			},
		},
	},
}

// InputTransformRecord is the input for the TransformRecord tool.
type InputTransformRecord struct {
	RecordType  string                        `json:"record_type"`
	Fields      map[string]any                `json:"fields"`
	FieldConfig map[string]config.FieldConfig `json:"field_config"`
}

// OutputTransformRecord is the output for the TransformRecord tool.
type OutputTransformRecord struct {
	// Record is the transformed record.
	Record map[string]any `json:"record"`
	// Keys lists the record's keys in output order.
	Keys []string `json:"keys"`
}

// TransformRecord builds an output record from a single source row. The text
// content of the result carries the record with its keys in template order.
func TransformRecord(_ context.Context, _ *mcp.CallToolRequest, input InputTransformRecord) (*mcp.CallToolResult, OutputTransformRecord, error) {
	if input.RecordType == "" {
		return nil, OutputTransformRecord{}, fmt.Errorf("record_type is required")
	}
	rt, err := config.ParseRecordType(input.RecordType)
	if err != nil {
		return nil, OutputTransformRecord{}, err
	}

	row := make(table.Row, len(input.Fields))
	for name, v := range input.Fields {
		row[name] = table.Of(v)
	}

	rec, err := transform.New(nil, input.FieldConfig).Transform(row, rt)
	if err != nil {
		return nil, OutputTransformRecord{}, err
	}
	obj, err := rec.Object()
	if err != nil {
		return nil, OutputTransformRecord{}, err
	}
	ordered, err := rec.MarshalJSON()
	if err != nil {
		return nil, OutputTransformRecord{}, err
	}

	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(ordered)}}}
	return res, OutputTransformRecord{Record: obj, Keys: rec.Keys()}, nil
}
