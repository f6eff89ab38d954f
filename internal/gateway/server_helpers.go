package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// timeoutArgument is a reserved call argument overriding the configured await
// deadline for a single call. It is stripped before validation and dispatch.
const timeoutArgument = "timeout_seconds"

// makeToolHandler builds the MCP handler for one tool id. The handler runs
// the full call pipeline: session lookup, validation, submit, await,
// materialize. It always returns a structurally valid result envelope; local
// and backend failures surface as error results, never as transport faults.
func (s *Server) makeToolHandler(toolID string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, connectionID, err := s.sessionFromContext(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		_, skill, err := s.registry.Resolve(toolID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s", toolID)), nil
		}

		args := extractArguments(req)
		timeout := callTimeout(args, s.config.CallTimeout)

		if err := validateArguments(skill.Parameters, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		taskID, err := s.correlator.Submit(ctx, session.SessionID, toolID, args, s.progressForwarder(connectionID))
		if err != nil {
			if errors.Is(err, ErrUnknownTool) {
				return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s", toolID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("dispatch failed: %v", err)), nil
		}

		// Detached skills acknowledge immediately; the mesh keeps
		// working after this call has returned.
		if skill.Detached {
			s.correlator.Remove(taskID)
			return mcp.NewToolResultText(fmt.Sprintf("submitted task %s", taskID)), nil
		}
		defer s.correlator.Remove(taskID)

		result, err := s.correlator.AwaitResult(ctx, taskID, timeout)
		if err != nil {
			if errors.Is(err, ErrBackendTimeout) {
				// Deliberately no automatic cancel: the mesh may
				// still finish, and the caller decides whether to
				// give up for good.
				return mcp.NewToolResultError(fmt.Sprintf("tool call timed out after %s (task %s)", timeout, taskID)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		if result.Cancelled {
			return mcp.NewToolResultError(fmt.Sprintf("task %s was cancelled", taskID)), nil
		}
		if result.Err != nil {
			return mcp.NewToolResultError(result.Err.Error()), nil
		}

		contents, err := s.materializer.Materialize(ctx, session, result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to materialize result: %v", err)), nil
		}
		if len(contents) == 0 {
			contents = []mcp.Content{mcp.TextContent{Type: "text", Text: ""}}
		}
		return &mcp.CallToolResult{Content: contents}, nil
	}
}

// callTimeout returns the await deadline for one call, honoring a positive
// timeout_seconds override. The reserved key is stripped from the arguments
// either way so it never reaches validation or the mesh.
func callTimeout(args map[string]interface{}, fallback time.Duration) time.Duration {
	raw, ok := args[timeoutArgument]
	if !ok {
		return fallback
	}
	delete(args, timeoutArgument)

	if secs, ok := raw.(float64); ok && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// progressForwarder relays progress chunks to the awaiting client as
// non-terminal logging notifications.
func (s *Server) progressForwarder(connectionID string) func(text string) {
	if connectionID == "" {
		return nil
	}
	return func(text string) {
		err := s.server.SendNotificationToSpecificClient(connectionID, "notifications/message", map[string]any{
			"level": "info",
			"data":  text,
		})
		if err != nil {
			logging.Debug("Gateway", "Could not forward progress to %s: %v",
				logging.TruncateSessionID(connectionID), err)
		}
	}
}

// handleReadResource serves a deferred artifact back to the session that
// minted its address.
func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	session, _, err := s.sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.exposer.Resolve(ctx, session.SessionID, req.Params.URI)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{artifactContents(req.Params.URI, a.MIMEType, a.Data)}, nil
}

// sessionFromContext maps the transport connection to its logical session.
// The MCP session id is the stable connection identity; the gateway session
// is derived from it deterministically.
func (s *Server) sessionFromContext(ctx context.Context) (*Session, string, error) {
	cs := server.ClientSessionFromContext(ctx)
	if cs == nil {
		return nil, "", fmt.Errorf("no client session in context")
	}

	connectionID := cs.SessionID()
	session, err := s.sessions.GetOrCreateSession(connectionID)
	if err != nil {
		return nil, "", err
	}
	return session, connectionID, nil
}

// extractArguments returns the call arguments as a map, copying so handler
// mutations (like stripping reserved arguments) stay local.
func extractArguments(req mcp.CallToolRequest) map[string]interface{} {
	args := make(map[string]interface{})
	if req.Params.Arguments != nil {
		if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
			for k, v := range argsMap {
				args[k] = v
			}
		}
	}
	return args
}

// toolDescription renders the MCP tool description for an entry.
func toolDescription(entry toolEntry) string {
	if entry.skill.Description != "" {
		return entry.skill.Description
	}
	return fmt.Sprintf("Skill %s of agent %s", entry.skill.Name, entry.agentName)
}

// toolInputSchema converts a skill's parameter schema into the MCP input
// schema shape.
func toolInputSchema(skill mesh.Skill) mcp.ToolInputSchema {
	schema := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
	if skill.Parameters == nil {
		return schema
	}

	if t, ok := skill.Parameters["type"].(string); ok && t != "" {
		schema.Type = t
	}
	if props, ok := skill.Parameters["properties"].(map[string]interface{}); ok {
		schema.Properties = props
	}
	if required, ok := skill.Parameters["required"].([]interface{}); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}
	return schema
}

// artifactContents wraps stored bytes as MCP resource contents, textual or
// binary depending on the media type.
func artifactContents(uri, mimeType string, data []byte) mcp.ResourceContents {
	if classifyMIME(mimeType) == mediaText {
		return mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeType,
			Text:     string(data),
		}
	}
	return mcp.BlobResourceContents{
		URI:      uri,
		MIMEType: mimeType,
		Blob:     base64.StdEncoding.EncodeToString(data),
	}
}
