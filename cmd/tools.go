package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"meshgate/internal/formatting"
)

var toolsEndpoint string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools currently exposed by a running gateway",
	Long: `Connects to a running meshgate server over streamable HTTP and prints
the currently registered tools. The list reflects live mesh state: agents
appearing or disappearing change it between invocations.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Connecting to %s...", toolsEndpoint)
	s.Start()

	tools, err := fetchTools(ctx, toolsEndpoint)
	s.Stop()
	if err != nil {
		return err
	}

	formatting.RenderToolsTable(cmd.OutOrStdout(), tools)
	return nil
}

func fetchTools(ctx context.Context, endpoint string) ([]mcp.Tool, error) {
	httpClient, err := client.NewStreamableHttpClient(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	defer httpClient.Close()

	if err := httpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = "2024-11-05"
	initReq.Params.ClientInfo = mcp.Implementation{Name: "meshgate-cli", Version: rootCmd.Version}
	if _, err := httpClient.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}

	result, err := httpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVar(&toolsEndpoint, "endpoint", "http://localhost:8090/mcp", "Gateway MCP endpoint")
}
