// Package formatting renders CLI output tables for meshgate commands.
package formatting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
)

// RenderToolsTable writes the tool list as a table to out.
func RenderToolsTable(out io.Writer, tools []mcp.Tool) {
	if len(tools) == 0 {
		fmt.Fprintf(out, "%s\n", text.FgYellow.Sprint("No tools registered"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TOOL"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})

	for _, tool := range tools {
		t.AppendRow(table.Row{tool.Name, truncate(tool.Description, 80)})
	}
	t.Render()

	fmt.Fprintf(out, "%s %s\n", text.FgHiBlue.Sprint("Total:"), text.FgHiWhite.Sprintf("%d tools", len(tools)))
}

// RenderResourcesTable writes the resource list as a table to out.
func RenderResourcesTable(out io.Writer, resources []mcp.Resource) {
	if len(resources) == 0 {
		fmt.Fprintf(out, "%s\n", text.FgYellow.Sprint("No resources available"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("URI"),
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("MIME TYPE"),
	})

	for _, resource := range resources {
		t.AppendRow(table.Row{resource.URI, resource.Name, resource.MIMEType})
	}
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
