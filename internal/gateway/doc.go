// Package gateway exposes a dynamically changing agent mesh as MCP tools.
//
// The gateway bridges two very different shapes: MCP clients issue blocking
// request/response tool calls, while the mesh executes work asynchronously
// and reports back through a fire-and-forget signal stream. The pieces:
//
//   - ToolRegistry projects discovered (agent, skill) capabilities to derived
//     tool ids, filtered by configurable include/exclude patterns, and exposes
//     the deltas the server needs for tools-changed notifications.
//   - TaskCorrelator creates a pending task per invocation, routes progress
//     and terminal signals to it, and lets the calling handler await the
//     outcome with a per-call timeout. Timeouts and cancellation are distinct
//     operations.
//   - Materializer converts terminal payloads into MCP response content,
//     inlining small items and deferring large ones to session-scoped
//     resource links served by the ResourceExposer.
//   - SessionManager derives a persistent session per client connection;
//     the session's artifact index is the only state that survives across
//     calls.
//
// Server ties these together on top of an mcp-go server with streamable
// HTTP, SSE, or stdio transport.
package gateway
