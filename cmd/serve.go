package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meshgate/internal/app"
	"meshgate/internal/config"
	"meshgate/pkg/logging"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory. When empty the
// per-user config directory is used.
var serveConfigPath string

// serveLoopback enables the built-in demo agent.
var serveLoopback bool

// serveManifestDir overrides the agent manifest directory from the config.
var serveManifestDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the meshgate MCP gateway server",
	Long: `Starts the gateway server and keeps it running until interrupted.

Agents are discovered from the configured manifest directory (watched for
changes, so dropping or removing a manifest updates the exposed tool set
live) and, with --loopback, from the built-in demo agent.

Configuration is read from config.yaml in the config directory; every value
has a sensible default, so an empty directory works.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	configPath := serveConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveLoopback {
		cfg.Mesh.Loopback = true
	}
	if serveManifestDir != "" {
		cfg.Mesh.ManifestDir = serveManifestDir
	}

	application, err := app.NewApplication(cfg, rootCmd.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
	serveCmd.Flags().BoolVar(&serveLoopback, "loopback", false, "Register the built-in demo agent")
	serveCmd.Flags().StringVar(&serveManifestDir, "manifest-dir", "", "Directory of agent manifest YAML files to watch")
}
