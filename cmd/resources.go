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

var resourcesEndpoint string

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resources visible to a session on a running gateway",
	Long: `Connects to a running meshgate server over streamable HTTP and prints
the resources the gateway lists for this connection. Artifacts deferred from
tool results are session-scoped, so the list covers only what the current
session can read.`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

func runResources(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Connecting to %s...", resourcesEndpoint)
	s.Start()

	resources, err := fetchResources(ctx, resourcesEndpoint)
	s.Stop()
	if err != nil {
		return err
	}

	formatting.RenderResourcesTable(cmd.OutOrStdout(), resources)
	return nil
}

func fetchResources(ctx context.Context, endpoint string) ([]mcp.Resource, error) {
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

	result, err := httpClient.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return result.Resources, nil
}

func init() {
	rootCmd.AddCommand(resourcesCmd)

	resourcesCmd.Flags().StringVar(&resourcesEndpoint, "endpoint", "http://localhost:8090/mcp", "Gateway MCP endpoint")
}
