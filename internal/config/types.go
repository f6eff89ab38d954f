package config

import "meshgate/internal/gateway"

// Config is the top-level configuration structure for meshgate.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Mesh    MeshConfig    `yaml:"mesh"`
}

// GatewayConfig configures the client-facing MCP server.
type GatewayConfig struct {
	Host      string `yaml:"host,omitempty"`      // Host to bind to (default: localhost)
	Port      int    `yaml:"port,omitempty"`      // Port for the MCP endpoint (default: 8090)
	Transport string `yaml:"transport,omitempty"` // streamable-http, sse, or stdio (default: streamable-http)

	// CallTimeoutSeconds is the default await deadline for a tool call.
	CallTimeoutSeconds int `yaml:"callTimeoutSeconds,omitempty"`

	// ResourceScheme is the address scheme for deferred artifacts.
	ResourceScheme string `yaml:"resourceScheme,omitempty"`

	// IncludePatterns/ExcludePatterns feed the capability filter. Entries
	// containing regex metacharacters are treated as regular expressions,
	// everything else matches exactly.
	IncludePatterns []string `yaml:"includePatterns,omitempty"`
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	Thresholds gateway.MaterializeThresholds `yaml:"thresholds,omitempty"`

	// SessionIdleTimeoutMinutes enables idle session eviction when set.
	// Zero keeps sessions (and their artifacts) until shutdown.
	SessionIdleTimeoutMinutes int `yaml:"sessionIdleTimeoutMinutes,omitempty"`

	// ArtifactStore selects where deferred artifacts live: "memory"
	// (default) or "sqlite".
	ArtifactStore string `yaml:"artifactStore,omitempty"`

	// ArtifactDBPath is the SQLite database path when artifactStore is
	// "sqlite".
	ArtifactDBPath string `yaml:"artifactDBPath,omitempty"`
}

// MeshConfig configures how agents are discovered.
type MeshConfig struct {
	// ManifestDir is a directory of agent manifest YAML files, watched
	// for changes. Empty disables the watcher.
	ManifestDir string `yaml:"manifestDir,omitempty"`

	// Loopback enables the built-in demo agent, useful for trying the
	// gateway without a real mesh.
	Loopback bool `yaml:"loopback,omitempty"`
}

// Artifact store kinds.
const (
	ArtifactStoreMemory = "memory"
	ArtifactStoreSQLite = "sqlite"
)
