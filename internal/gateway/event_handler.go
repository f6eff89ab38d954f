package gateway

import (
	"context"

	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// EventHandler reacts to the mesh discovery feed, keeping the tool registry
// in step with the agents that are actually reachable.
type EventHandler struct {
	registry *ToolRegistry
	feed     mesh.DiscoveryFeed
}

// NewEventHandler creates a handler applying feed events to the registry.
func NewEventHandler(registry *ToolRegistry, feed mesh.DiscoveryFeed) *EventHandler {
	return &EventHandler{registry: registry, feed: feed}
}

// Run consumes discovery events until the context is cancelled or the feed
// closes. Registry deltas are logged; tools-changed notification delivery is
// driven off the registry's update channel by the server.
func (h *EventHandler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-h.feed.Events():
			if !ok {
				return nil
			}
			h.handle(event)
		}
	}
}

func (h *EventHandler) handle(event mesh.RegistryEvent) {
	switch event.Kind {
	case mesh.EventAgentRegistered:
		added := h.registry.RegisterAgent(event.Agent)
		logging.Info("EventHandler", "Agent %s registered, %d new tools: %v",
			event.Agent.Name, len(added), added)
	case mesh.EventAgentDeregistered:
		removed := h.registry.DeregisterAgent(event.Agent.Name)
		logging.Info("EventHandler", "Agent %s deregistered, %d tools removed: %v",
			event.Agent.Name, len(removed), removed)
	default:
		logging.Warn("EventHandler", "Ignoring discovery event of unknown kind %d", event.Kind)
	}
}
