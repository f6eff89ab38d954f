package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshgate/internal/mesh"
)

func weatherAgent() mesh.AgentDescriptor {
	return mesh.AgentDescriptor{
		Name: "weather",
		Skills: []mesh.Skill{
			{Name: "forecast", Description: "Daily forecast"},
			{Name: "current", Description: "Current conditions"},
		},
	}
}

func TestRegisterAgentReturnsNewlyVisible(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	newIDs := r.RegisterAgent(weatherAgent())
	assert.Equal(t, []string{"weather_current", "weather_forecast"}, newIDs)
	assert.Equal(t, []string{"weather_current", "weather_forecast"}, r.ListToolIDs())
}

func TestRegisterAgentIdempotent(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	first := r.RegisterAgent(weatherAgent())
	require.Len(t, first, 2)

	// Re-registering unchanged capabilities yields an empty delta and the
	// same visible set.
	second := r.RegisterAgent(weatherAgent())
	assert.Empty(t, second)
	assert.Equal(t, []string{"weather_current", "weather_forecast"}, r.ListToolIDs())
}

func TestRegisterAgentAppliesFilter(t *testing.T) {
	r := NewToolRegistry(nil, []string{"weather_current"})

	newIDs := r.RegisterAgent(weatherAgent())
	assert.Equal(t, []string{"weather_forecast"}, newIDs)

	_, _, err := r.Resolve("weather_current")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegisterAgentDropsCollidingID(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	r.RegisterAgent(mesh.AgentDescriptor{
		Name:   "weather-service",
		Skills: []mesh.Skill{{Name: "forecast"}},
	})

	// A different agent deriving the same id loses; the rest of its
	// skills still register.
	newIDs := r.RegisterAgent(mesh.AgentDescriptor{
		Name:   "Weather Service",
		Skills: []mesh.Skill{{Name: "forecast"}, {Name: "alerts"}},
	})
	assert.Equal(t, []string{"weather_service_alerts"}, newIDs)

	agentName, _, err := r.Resolve("weather_service_forecast")
	require.NoError(t, err)
	assert.Equal(t, "weather-service", agentName)
}

func TestReRegistrationDropsRemovedSkills(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	r.RegisterAgent(weatherAgent())
	<-r.UpdateChannel()

	// The skill set replaces wholesale: an update without "current" takes
	// its tool away.
	newIDs := r.RegisterAgent(mesh.AgentDescriptor{
		Name:   "weather",
		Skills: []mesh.Skill{{Name: "forecast", Description: "Daily forecast"}},
	})
	assert.Empty(t, newIDs)
	assert.Equal(t, []string{"weather_forecast"}, r.ListToolIDs())

	_, _, err := r.Resolve("weather_current")
	assert.ErrorIs(t, err, ErrUnknownTool)

	// Shrinking the visible set still notifies clients.
	select {
	case <-r.UpdateChannel():
	default:
		t.Fatal("expected an update notification after a skill was removed")
	}

	// The removed skill coming back is newly visible again.
	newIDs = r.RegisterAgent(weatherAgent())
	assert.Equal(t, []string{"weather_current"}, newIDs)
}

func TestSameAgentCollidingSkillsKeepFirst(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	// Both skill names sanitize to run_task; the first declared wins.
	newIDs := r.RegisterAgent(mesh.AgentDescriptor{
		Name: "ops",
		Skills: []mesh.Skill{
			{Name: "run task", Description: "first"},
			{Name: "run-task", Description: "second"},
		},
	})
	assert.Equal(t, []string{"ops_run_task"}, newIDs)

	_, skill, err := r.Resolve("ops_run_task")
	require.NoError(t, err)
	assert.Equal(t, "run task", skill.Name)
	assert.Equal(t, "first", skill.Description)
}

func TestDeregisterAgent(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	r.RegisterAgent(weatherAgent())

	removed := r.DeregisterAgent("weather")
	assert.Equal(t, []string{"weather_current", "weather_forecast"}, removed)
	assert.Empty(t, r.ListToolIDs())

	// Deregistering an unknown agent is a no-op.
	assert.Empty(t, r.DeregisterAgent("weather"))
}

func TestResolve(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	r.RegisterAgent(weatherAgent())

	agentName, skill, err := r.Resolve("weather_forecast")
	require.NoError(t, err)
	assert.Equal(t, "weather", agentName)
	assert.Equal(t, "forecast", skill.Name)

	_, _, err = r.Resolve("nope")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestUpdateChannelCoalesces(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	r.RegisterAgent(weatherAgent())
	r.DeregisterAgent("weather")
	r.RegisterAgent(weatherAgent())

	// Several mutations while nobody listens collapse into one pending
	// notification.
	select {
	case <-r.UpdateChannel():
	default:
		t.Fatal("expected a pending update notification")
	}
	select {
	case <-r.UpdateChannel():
		t.Fatal("expected updates to coalesce into a single notification")
	default:
	}
}

func TestNoUpdateOnUnchangedRegistration(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	r.RegisterAgent(weatherAgent())
	<-r.UpdateChannel()

	r.RegisterAgent(weatherAgent())
	select {
	case <-r.UpdateChannel():
		t.Fatal("unchanged registration must not signal an update")
	default:
	}
}

func TestRegistryAtomicityUnderChurn(t *testing.T) {
	r := NewToolRegistry(nil, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers continuously cross-check list against resolve. Every id the
	// snapshot reports must resolve or the snapshot must predate its
	// removal entirely; a half-removed agent would leave one of its two
	// ids resolvable and the other not within a single snapshot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			ids := r.ListToolIDs()
			if len(ids) != 0 && len(ids) != 2 {
				t.Errorf("observed partial agent state: %v", ids)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		r.RegisterAgent(weatherAgent())
		r.DeregisterAgent("weather")
	}
	close(stop)
	wg.Wait()
}
