package app

import (
	"context"
	"fmt"
	"time"

	"meshgate/internal/artifact"
	"meshgate/internal/config"
	"meshgate/internal/mesh"
)

const shutdownTimeout = 10 * time.Second

func buildStore(cfg config.GatewayConfig) (artifact.Store, error) {
	switch cfg.ArtifactStore {
	case config.ArtifactStoreSQLite:
		store, err := artifact.NewSQLiteStore(cfg.ArtifactDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite artifact store: %w", err)
		}
		return store, nil
	case config.ArtifactStoreMemory, "":
		return artifact.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown artifact store %q", cfg.ArtifactStore)
	}
}

func callTimeout(cfg config.GatewayConfig) time.Duration {
	if cfg.CallTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.CallTimeoutSeconds) * time.Second
}

func sessionIdleTimeout(cfg config.GatewayConfig) time.Duration {
	if cfg.SessionIdleTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(cfg.SessionIdleTimeoutMinutes) * time.Minute
}

// registerDemoAgent installs the built-in echo agent, handy for trying the
// gateway without a real mesh behind it.
func registerDemoAgent(loopback *mesh.Loopback) {
	agent := mesh.AgentDescriptor{
		Name: "demo",
		Skills: []mesh.Skill{
			{
				Name:        "echo",
				Description: "Echo the given message back, with a progress update on the way",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"message"},
				},
			},
			{
				Name:        "make_file",
				Description: "Produce a text artifact of the requested size in bytes",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"size": map[string]interface{}{"type": "integer"},
					},
				},
			},
		},
	}

	loopback.AddAgent(agent, map[string]mesh.SkillHandler{
		"echo": func(ctx context.Context, args map[string]interface{}, progress func(string)) (*mesh.ResultPayload, error) {
			message, _ := args["message"].(string)
			progress("echoing... ")
			return &mesh.ResultPayload{Text: message}, nil
		},
		"make_file": func(ctx context.Context, args map[string]interface{}, progress func(string)) (*mesh.ResultPayload, error) {
			size := 1024
			if s, ok := args["size"].(float64); ok && s > 0 {
				size = int(s)
			}
			data := make([]byte, size)
			for i := range data {
				data[i] = 'a' + byte(i%26)
			}
			return &mesh.ResultPayload{
				Text: fmt.Sprintf("generated %d bytes", size),
				Items: []mesh.ResultItem{
					{Name: "generated.txt", MIMEType: "text/plain", Data: data},
				},
			}, nil
		},
	})
}
