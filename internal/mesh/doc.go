// Package mesh defines the boundary between the gateway and the agent mesh
// it fronts: the discovery feed that announces agents and their skills, and
// the execution fabric that runs skill invocations and delivers signals
// back.
//
// The package deliberately knows nothing about MCP. The gateway consumes a
// DiscoveryFeed to maintain its tool registry and a Dispatcher to execute
// tool calls; any broker or transport that satisfies those two interfaces
// can back the gateway.
//
// Two implementations ship with meshgate:
//
//   - Loopback: an in-process mesh whose agents are Go functions, used by
//     the demo mode and throughout the test suite.
//   - ManifestWatcher: a DiscoveryFeed that reads agent manifests (one YAML
//     file per agent) from a directory and follows changes with fsnotify.
package mesh
