package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"meshgate/internal/artifact"
	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// Transport selects how the gateway listens for MCP clients.
type Transport string

const (
	TransportStreamableHTTP Transport = "streamable-http"
	TransportSSE            Transport = "sse"
	TransportStdio          Transport = "stdio"
)

// ServerConfig configures the gateway server.
type ServerConfig struct {
	Name    string
	Version string

	Transport Transport
	Host      string
	Port      int

	// ResourceScheme is the scheme for deferred artifact addresses.
	ResourceScheme string

	// CallTimeout is the default await deadline for a tool call. A call
	// may override it with the reserved timeout_seconds argument.
	CallTimeout time.Duration

	// IncludePatterns/ExcludePatterns feed the capability filter.
	IncludePatterns []string
	ExcludePatterns []string

	Thresholds MaterializeThresholds

	// SessionIdleTimeout enables idle session eviction when non-zero.
	SessionIdleTimeout time.Duration
}

// Server is the MCP gateway: it projects the agent mesh's skills as MCP
// tools, runs each call as a correlated task, and materializes results under
// the configured inline thresholds.
type Server struct {
	config     ServerConfig
	dispatcher mesh.Dispatcher
	feed       mesh.DiscoveryFeed
	store      artifact.Store

	registry     *ToolRegistry
	correlator   *TaskCorrelator
	sessions     *SessionManager
	exposer      *ResourceExposer
	materializer *Materializer
	events       *EventHandler

	server               *server.MCPServer
	sseServer            *server.SSEServer
	streamableHTTPServer *server.StreamableHTTPServer
	stdioServer          *server.StdioServer

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex

	// activeTools tracks which tool ids are currently registered on the
	// MCP server, for add/delete diffing on registry updates.
	activeTools map[string]bool
}

// NewServer wires the gateway components around the given mesh boundary and
// artifact store.
func NewServer(config ServerConfig, dispatcher mesh.Dispatcher, feed mesh.DiscoveryFeed, store artifact.Store) *Server {
	if config.CallTimeout <= 0 {
		config.CallTimeout = 2 * time.Minute
	}
	if config.Thresholds == (MaterializeThresholds{}) {
		config.Thresholds = DefaultThresholds()
	}

	registry := NewToolRegistry(config.IncludePatterns, config.ExcludePatterns)
	sessions := NewSessionManager(config.SessionIdleTimeout, func(sessionID string) {
		if err := store.DeleteSession(context.Background(), sessionID); err != nil {
			logging.Error("Gateway", err, "Failed to drop artifacts of evicted session %s",
				logging.TruncateSessionID(sessionID))
		}
	})
	exposer := NewResourceExposer(config.ResourceScheme, sessions, store)

	return &Server{
		config:       config,
		dispatcher:   dispatcher,
		feed:         feed,
		store:        store,
		registry:     registry,
		correlator:   NewTaskCorrelator(registry, dispatcher),
		sessions:     sessions,
		exposer:      exposer,
		materializer: NewMaterializer(config.Thresholds, exposer),
		events:       NewEventHandler(registry, feed),
		activeTools:  make(map[string]bool),
	}
}

// Start brings up the MCP server, the background loops, and the configured
// transport.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return fmt.Errorf("gateway server already started")
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)

	mcpServer := server.NewMCPServer(
		s.config.Name,
		s.config.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)
	s.server = mcpServer

	template := mcp.NewResourceTemplate(
		s.exposer.Scheme()+"://{session_id}/{filename}",
		"session-artifacts",
		mcp.WithTemplateDescription("Artifacts deferred from tool results, scoped to the session that produced them"),
	)
	mcpServer.AddResourceTemplate(template, s.handleReadResource)

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.correlator.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.events.Run(s.ctx)
	}()
	go s.monitorRegistryUpdates()

	s.mu.Unlock()

	// Expose whatever the registry already knows.
	s.syncTools()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	switch s.config.Transport {
	case TransportSSE:
		logging.Info("Gateway", "Starting MCP gateway with SSE transport on %s", addr)
		baseURL := fmt.Sprintf("http://%s", addr)
		s.sseServer = server.NewSSEServer(
			s.server,
			server.WithBaseURL(baseURL),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		sseServer := s.sseServer
		go func() {
			if err := sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Gateway", err, "SSE server error")
			}
		}()

	case TransportStdio:
		logging.Info("Gateway", "Starting MCP gateway with stdio transport")
		s.stdioServer = server.NewStdioServer(s.server)
		stdioServer := s.stdioServer
		go func() {
			if err := stdioServer.Listen(s.ctx, os.Stdin, os.Stdout); err != nil {
				logging.Error("Gateway", err, "Stdio server error")
			}
		}()

	case TransportStreamableHTTP:
		fallthrough
	default:
		logging.Info("Gateway", "Starting MCP gateway with streamable-http transport on %s", addr)
		s.streamableHTTPServer = server.NewStreamableHTTPServer(s.server)
		streamableServer := s.streamableHTTPServer
		go func() {
			if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Gateway", err, "Streamable HTTP server error")
			}
		}()
	}

	return nil
}

// Stop shuts down the transport, the background loops, and the session
// manager.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		return fmt.Errorf("gateway server not started")
	}

	logging.Info("Gateway", "Stopping MCP gateway")

	cancelFunc := s.cancelFunc
	sseServer := s.sseServer
	streamableServer := s.streamableHTTPServer
	s.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Gateway", err, "Error shutting down SSE server")
		}
	}
	if streamableServer != nil {
		if err := streamableServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Gateway", err, "Error shutting down streamable HTTP server")
		}
	}
	// The stdio server stops on context cancellation.

	s.wg.Wait()
	s.sessions.Stop()

	s.mu.Lock()
	s.server = nil
	s.sseServer = nil
	s.streamableHTTPServer = nil
	s.stdioServer = nil
	s.mu.Unlock()

	return nil
}

// Endpoint returns the client-facing endpoint for the configured transport.
func (s *Server) Endpoint() string {
	switch s.config.Transport {
	case TransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", s.config.Host, s.config.Port)
	case TransportStdio:
		return "stdio"
	default:
		return fmt.Sprintf("http://%s:%d/mcp", s.config.Host, s.config.Port)
	}
}

// Registry exposes the tool registry, mainly for CLI introspection.
func (s *Server) Registry() *ToolRegistry {
	return s.registry
}

// monitorRegistryUpdates re-syncs the MCP tool set whenever the registry's
// visible id set changes, then notifies all connected clients.
func (s *Server) monitorRegistryUpdates() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.registry.UpdateChannel():
			s.syncTools()
			s.server.SendNotificationToAllClients("notifications/tools/list_changed", nil)
			logging.Debug("Gateway", "Registry changed, clients notified")
		}
	}
}

// syncTools diffs the registry's entries against the tools currently on the
// MCP server, deleting stale ones and adding new ones in batches.
func (s *Server) syncTools() {
	entries := s.registry.ListEntries()

	desired := make(map[string]bool, len(entries))
	for _, entry := range entries {
		desired[entry.toolID] = true
	}

	s.mu.Lock()
	var stale []string
	for toolID := range s.activeTools {
		if !desired[toolID] {
			stale = append(stale, toolID)
			delete(s.activeTools, toolID)
		}
	}
	var toAdd []server.ServerTool
	for _, entry := range entries {
		if s.activeTools[entry.toolID] {
			continue
		}
		s.activeTools[entry.toolID] = true
		toAdd = append(toAdd, server.ServerTool{
			Tool: mcp.Tool{
				Name:        entry.toolID,
				Description: toolDescription(entry),
				InputSchema: toolInputSchema(entry.skill),
			},
			Handler: s.makeToolHandler(entry.toolID),
		})
	}
	s.mu.Unlock()

	if len(stale) > 0 {
		logging.Debug("Gateway", "Removing %d stale tools", len(stale))
		s.server.DeleteTools(stale...)
	}
	if len(toAdd) > 0 {
		logging.Debug("Gateway", "Adding %d tools in batch", len(toAdd))
		s.server.AddTools(toAdd...)
	}
}
