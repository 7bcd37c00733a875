// SPDX-License-Identifier: Apache-2.0

// Package tool exposes the record transform, record validation and source URL
// parsing steps of a migration as MCP tools, so catalog editors can check a
// single row without running a whole migration.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName is the MCP implementation name.
const ServerName = "msmigrate"

// NewServer returns an MCP server with every tool registered.
func NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	mcp.AddTool(server, MetadataTransformRecord, TransformRecord)
	mcp.AddTool(server, MetadataValidateRecord, ValidateRecord)
	mcp.AddTool(server, MetadataParseSourceURL, ParseSourceURL)
	return server
}
