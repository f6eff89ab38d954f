package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshgate/internal/mesh"
)

type stubFeed struct {
	events chan mesh.RegistryEvent
}

func (f *stubFeed) Events() <-chan mesh.RegistryEvent { return f.events }

func TestEventHandlerAppliesFeed(t *testing.T) {
	registry := NewToolRegistry(nil, nil)
	feed := &stubFeed{events: make(chan mesh.RegistryEvent)}
	handler := NewEventHandler(registry, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		handler.Run(ctx)
		close(done)
	}()

	feed.events <- mesh.RegistryEvent{Kind: mesh.EventAgentRegistered, Agent: weatherAgent()}
	require.Eventually(t, func() bool {
		return len(registry.ListToolIDs()) == 2
	}, time.Second, 5*time.Millisecond)

	feed.events <- mesh.RegistryEvent{Kind: mesh.EventAgentDeregistered, Agent: mesh.AgentDescriptor{Name: "weather"}}
	require.Eventually(t, func() bool {
		return len(registry.ListToolIDs()) == 0
	}, time.Second, 5*time.Millisecond)

	// A closed feed ends the loop without cancellation.
	close(feed.events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not stop when the feed closed")
	}
	assert.Empty(t, registry.ListToolIDs())
}
