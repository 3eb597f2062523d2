package main

import (
	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/corpus"
	mcpserver "github.com/snipdex/snipdex/internal/mcp"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP stdio server",
		Long: `Builds the index and exposes it to MCP clients over stdio.

Register the binary in your client's MCP configuration, e.g.:

  {"mcpServers": {"snipdex": {"command": "snipdex", "args": ["mcp"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, err := buildIndex()
			if err != nil {
				return err
			}
			mcpserver.Version = Version
			return mcpserver.Serve(idx, func() (*corpus.Index, error) {
				fresh, _, err := buildIndex()
				return fresh, err
			})
		},
	}
}
