// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sinai-manuscripts/msmigrate/internal/table/sources"
)

// MetadataParseSourceURL describes the parse_source_url tool.
var MetadataParseSourceURL = &mcp.Tool{
	Name: "parse_source_url",
	Description: "Split a remote table URL of the form <domain>/<base>/<table>[/<view>] into its " +
		"base, table and view keys, as the migration does before listing records. " +
		"Surrounding whitespace and any query string are ignored.",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"url"},
		Properties: map[string]*jsonschema.Schema{
			"url": {
				Type:        "string",
				Description: "Remote table URL, e.g. https://airtable.com/appXXXX/tblYYYY/viwZZZZ",
			},
		},
	},
}

// InputParseSourceURL is the input for the ParseSourceURL tool.
type InputParseSourceURL struct {
	URL string `json:"url"`
}

// OutputParseSourceURL is the output for the ParseSourceURL tool.
type OutputParseSourceURL struct {
	Base  string `json:"base"`
	Table string `json:"table"`
	View  string `json:"view,omitempty"`
}

// ParseSourceURL parses a remote table URL.
func ParseSourceURL(_ context.Context, _ *mcp.CallToolRequest, input InputParseSourceURL) (*mcp.CallToolResult, OutputParseSourceURL, error) {
	if input.URL == "" {
		return nil, OutputParseSourceURL{}, fmt.Errorf("url is required")
	}
	ref, err := sources.ParseSourceURL(input.URL)
	if err != nil {
		return nil, OutputParseSourceURL{}, err
	}
	return nil, OutputParseSourceURL{Base: ref.Base, Table: ref.Table, View: ref.View}, nil
}
