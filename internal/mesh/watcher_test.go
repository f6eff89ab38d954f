package mesh

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `name: weather
skills:
  - name: forecast
    description: Seven day forecast
    parameters:
      type: object
      properties:
        city:
          type: string
      required: [city]
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	desc, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "weather", desc.Name)
	require.Len(t, desc.Skills, 1)
	assert.Equal(t, "forecast", desc.Skills[0].Name)
	assert.Equal(t, "object", desc.Skills[0].Parameters["type"])
}

func TestLoadManifestRejectsEmpty(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"no name", "skills:\n  - name: s\n"},
		{"no skills", "name: lonely\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := loadManifest(path)
			assert.Error(t, err)
		})
	}
}

func waitForEvent(t *testing.T, ch <-chan RegistryEvent) RegistryEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for registry event")
		return RegistryEvent{}
	}
}

func TestManifestWatcherInitialScanAndRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	w := NewManifestWatcher(dir, 20*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	ev := waitForEvent(t, w.Events())
	assert.Equal(t, EventAgentRegistered, ev.Kind)
	assert.Equal(t, "weather", ev.Agent.Name)

	require.NoError(t, os.Remove(path))

	ev = waitForEvent(t, w.Events())
	assert.Equal(t, EventAgentDeregistered, ev.Kind)
	assert.Equal(t, "weather", ev.Agent.Name)
}

func TestManifestWatcherIgnoresNonYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	w := NewManifestWatcher(dir, 20*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
