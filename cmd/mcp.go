/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server so AI assistants can link
mentions and manage the knowledge base.

The MCP server runs over stdin/stdout and provides tools for:
- Linking a document's mentions in order
- Looking up candidate entities for a name
- Adding or updating knowledge base entities

The server will run until the client disconnects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServer(ctx context.Context) error {
	c, err := buildComponents(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize linking engine: %w", err)
	}
	defer c.close()

	impl := &mcp.Implementation{
		Name:    "linkwing",
		Version: version,
	}
	server := mcp.NewServer(impl, &mcp.ServerOptions{})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "link-mentions",
		Description: "Link a document's entity mentions to knowledge base entities. Mentions are processed in document order so earlier links boost related later ones. Returns the resolved entity, method, and confidence per mention.",
	}, linkMentionsHandler(c))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find-entity",
		Description: "Look up candidate entities for a name or alias using exact, alias, and fuzzy matching. Returns candidates ranked by similarity.",
	}, findEntityHandler(c))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add-entity",
		Description: "Create or update a knowledge base entity and make it immediately available to linking.",
	}, addEntityHandler(c))

	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
