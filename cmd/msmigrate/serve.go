// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sinai-manuscripts/msmigrate/internal/tool"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the record tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), root.verbose)
			logger.Info("serving MCP tools on stdio", "server", tool.ServerName, "version", version)
			return tool.NewServer(version).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
