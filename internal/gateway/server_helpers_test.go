package gateway

import (
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshgate/internal/mesh"
)

func TestToolInputSchema(t *testing.T) {
	skill := mesh.Skill{
		Name: "forecast",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"city": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"city"},
		},
	}

	schema := toolInputSchema(skill)
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "city")
	assert.Equal(t, []string{"city"}, schema.Required)
}

func TestToolInputSchemaEmpty(t *testing.T) {
	schema := toolInputSchema(mesh.Skill{Name: "ping"})
	assert.Equal(t, "object", schema.Type)
	assert.NotNil(t, schema.Properties)
	assert.Empty(t, schema.Required)
}

func TestToolDescription(t *testing.T) {
	entry := toolEntry{
		toolID:    "weather_forecast",
		agentName: "weather",
		skill:     mesh.Skill{Name: "forecast", Description: "Daily forecast"},
	}
	assert.Equal(t, "Daily forecast", toolDescription(entry))

	entry.skill.Description = ""
	assert.Equal(t, "Skill forecast of agent weather", toolDescription(entry))
}

func TestExtractArgumentsCopies(t *testing.T) {
	original := map[string]interface{}{"city": "Berlin", "timeout_seconds": float64(5)}
	req := mcp.CallToolRequest{}
	req.Params.Arguments = original

	args := extractArguments(req)
	delete(args, "timeout_seconds")

	assert.Contains(t, original, "timeout_seconds")
	assert.Equal(t, "Berlin", args["city"])
}

func TestCallTimeout(t *testing.T) {
	fallback := 2 * time.Minute

	tests := []struct {
		name  string
		value interface{}
		want  time.Duration
	}{
		{"positive override", float64(5), 5 * time.Second},
		{"zero falls back", float64(0), fallback},
		{"negative falls back", float64(-3), fallback},
		{"non-numeric falls back", "soon", fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{"city": "Berlin", timeoutArgument: tt.value}
			assert.Equal(t, tt.want, callTimeout(args, fallback))
			// The reserved key never survives, usable or not.
			assert.NotContains(t, args, timeoutArgument)
			assert.Contains(t, args, "city")
		})
	}
}

func TestCallTimeoutAbsent(t *testing.T) {
	args := map[string]interface{}{"city": "Berlin"}
	assert.Equal(t, time.Minute, callTimeout(args, time.Minute))
	assert.Contains(t, args, "city")
}

func TestExtractArgumentsNonMap(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = "not a map"
	assert.Empty(t, extractArguments(req))
}

func TestArtifactContents(t *testing.T) {
	text := artifactContents("meshgate://s/a.txt", "text/plain", []byte("hello"))
	tc, ok := text.(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "hello", tc.Text)
	assert.Equal(t, "meshgate://s/a.txt", tc.URI)

	blob := artifactContents("meshgate://s/a.pdf", "application/pdf", []byte{0x25, 0x50})
	bc, ok := blob.(mcp.BlobResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", bc.MIMEType)
	assert.NotEmpty(t, bc.Blob)
}
