// Package cmd implements the meshgate command-line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meshgate application.
var rootCmd = &cobra.Command{
	Use:   "meshgate",
	Short: "Expose an agent mesh as MCP tools",
	Long: `meshgate projects the skills of a dynamically changing agent mesh as
MCP (Model Context Protocol) tools. Clients connect over streamable HTTP,
SSE, or stdio; every tool call runs as an asynchronous, cancellable task
against the mesh, and oversized result artifacts come back as session-scoped
resource links instead of inline data.`,
	// SilenceUsage keeps handled errors from re-printing the usage block.
	SilenceUsage: true,
}

// SetVersion injects the build version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meshgate version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
