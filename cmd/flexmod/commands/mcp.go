package commands

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/pkg/mcpserver/mods"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the mods as MCP tools over stdio",
	Long: `Run an MCP server on stdin/stdout exposing list_mods, get_document,
get_settings, set_settings, apply and check as tools.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s := mods.NewServer(modService(), appConfig)
	return server.ServeStdio(s)
}
