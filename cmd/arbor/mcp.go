package main

import (
	"context"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes a definition as an MCP Server, so agents can read the state, fill in
fields, invoke actions and submit forms.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, _ := cmd.Flags().GetString("def")
		transport, _ := cmd.Flags().GetString("transport")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		logger.Info("Starting MCP server", "transport", transport)
		return cli.ServeMCP(ctx, cfg, def, transport, logger)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	defFlag(mcpCmd, "Definition file")
	listenFlags(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
}
