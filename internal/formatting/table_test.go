package formatting

import (
	"bytes"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestRenderToolsTable(t *testing.T) {
	var buf bytes.Buffer
	RenderToolsTable(&buf, []mcp.Tool{
		{Name: "weather_forecast", Description: "Daily forecast"},
	})

	out := buf.String()
	assert.Contains(t, out, "weather_forecast")
	assert.Contains(t, out, "Daily forecast")
	assert.Contains(t, out, "1 tools")
}

func TestRenderToolsTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderToolsTable(&buf, nil)
	assert.Contains(t, buf.String(), "No tools registered")
}

func TestRenderResourcesTable(t *testing.T) {
	var buf bytes.Buffer
	RenderResourcesTable(&buf, []mcp.Resource{
		{URI: "meshgate://abc/report.pdf", Name: "report.pdf", MIMEType: "application/pdf"},
	})

	out := buf.String()
	assert.Contains(t, out, "meshgate://abc/report.pdf")
	assert.Contains(t, out, "application/pdf")
}

func TestRenderResourcesTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderResourcesTable(&buf, nil)
	assert.Contains(t, buf.String(), "No resources available")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "long de...", truncate("long description", 10))
}
