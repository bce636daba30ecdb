package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the ticktick-mcp application
var rootCmd = &cobra.Command{
	Use:   "ticktick-mcp",
	Short: "MCP server for the TickTick task manager",
	Long: `ticktick-mcp exposes the TickTick Open API as Model Context Protocol
(MCP) tools so AI assistants can read and manage your projects and tasks.

It can run over:
  - stdio: for local MCP clients such as Claude Desktop (default)
  - streamable-http: an OAuth-protected HTTP transport for deployed instances

Use the auth command to obtain TickTick OAuth credentials before serving.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ticktick-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
