package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshgate/internal/artifact"
	"meshgate/internal/config"
	"meshgate/internal/mesh"
)

func TestBuildStore(t *testing.T) {
	store, err := buildStore(config.GatewayConfig{ArtifactStore: config.ArtifactStoreMemory})
	require.NoError(t, err)
	_, ok := store.(*artifact.MemoryStore)
	assert.True(t, ok)

	store, err = buildStore(config.GatewayConfig{
		ArtifactStore:  config.ArtifactStoreSQLite,
		ArtifactDBPath: filepath.Join(t.TempDir(), "artifacts.db"),
	})
	require.NoError(t, err)
	sqliteStore, ok := store.(*artifact.SQLiteStore)
	require.True(t, ok)
	sqliteStore.Close()

	_, err = buildStore(config.GatewayConfig{ArtifactStore: "papyrus"})
	assert.Error(t, err)
}

func TestTimeoutConversions(t *testing.T) {
	assert.Equal(t, 30*time.Second, callTimeout(config.GatewayConfig{CallTimeoutSeconds: 30}))
	assert.Zero(t, callTimeout(config.GatewayConfig{}))
	assert.Equal(t, 15*time.Minute, sessionIdleTimeout(config.GatewayConfig{SessionIdleTimeoutMinutes: 15}))
	assert.Zero(t, sessionIdleTimeout(config.GatewayConfig{}))
}

func TestDemoAgentEcho(t *testing.T) {
	loopback := mesh.NewLoopback()
	defer loopback.Close()
	registerDemoAgent(loopback)

	// The registration event announces both demo skills.
	select {
	case event := <-loopback.Events():
		assert.Equal(t, mesh.EventAgentRegistered, event.Kind)
		assert.Equal(t, "demo", event.Agent.Name)
		assert.Len(t, event.Agent.Skills, 2)
	case <-time.After(time.Second):
		t.Fatal("no registration event")
	}

	err := loopback.Dispatch(context.Background(), mesh.Invocation{
		TaskID:    "t1",
		AgentName: "demo",
		SkillName: "echo",
		Arguments: map[string]interface{}{"message": "hi"},
	})
	require.NoError(t, err)

	var terminal mesh.Signal
	deadline := time.After(time.Second)
	for done := false; !done; {
		select {
		case sig := <-loopback.Signals():
			if sig.Kind != mesh.SignalProgress {
				terminal = sig
				done = true
			}
		case <-deadline:
			t.Fatal("no terminal signal")
		}
	}

	require.Equal(t, mesh.SignalComplete, terminal.Kind)
	require.NotNil(t, terminal.Payload)
	assert.Equal(t, "hi", terminal.Payload.Text)
}

func TestNewApplication(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mesh.Loopback = true

	application, err := NewApplication(cfg, "test")
	require.NoError(t, err)
	require.NotNil(t, application.server)
	application.loopback.Close()
}
