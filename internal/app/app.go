// Package app wires configuration, the mesh boundary, and the gateway server
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"meshgate/internal/artifact"
	"meshgate/internal/config"
	"meshgate/internal/gateway"
	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// Application holds the assembled components of a meshgate process.
type Application struct {
	cfg    config.Config
	server *gateway.Server

	loopback *mesh.Loopback
	watcher  *mesh.ManifestWatcher
	store    artifact.Store
}

// NewApplication assembles an application from configuration.
func NewApplication(cfg config.Config, version string) (*Application, error) {
	app := &Application{cfg: cfg}

	store, err := buildStore(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	app.store = store

	// The loopback mesh is both the execution backend and, optionally, a
	// discovery source for its built-in demo agent.
	app.loopback = mesh.NewLoopback()
	if cfg.Mesh.Loopback {
		registerDemoAgent(app.loopback)
	}

	feeds := []mesh.DiscoveryFeed{app.loopback}
	if cfg.Mesh.ManifestDir != "" {
		app.watcher = mesh.NewManifestWatcher(cfg.Mesh.ManifestDir, 0)
		feeds = append(feeds, app.watcher)
	}

	app.server = gateway.NewServer(gateway.ServerConfig{
		Name:               "meshgate",
		Version:            version,
		Transport:          gateway.Transport(cfg.Gateway.Transport),
		Host:               cfg.Gateway.Host,
		Port:               cfg.Gateway.Port,
		ResourceScheme:     cfg.Gateway.ResourceScheme,
		CallTimeout:        callTimeout(cfg.Gateway),
		IncludePatterns:    cfg.Gateway.IncludePatterns,
		ExcludePatterns:    cfg.Gateway.ExcludePatterns,
		Thresholds:         cfg.Gateway.Thresholds,
		SessionIdleTimeout: sessionIdleTimeout(cfg.Gateway),
	}, app.loopback, mesh.MergeFeeds(feeds...), store)

	return app, nil
}

// Run starts the application and blocks until the context is cancelled or a
// termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("starting manifest watcher: %w", err)
		}
	}
	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway server: %w", err)
	}
	logging.Info("App", "meshgate listening at %s", a.server.Endpoint())

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

func (a *Application) shutdown() error {
	logging.Info("App", "Shutting down")

	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.loopback.Close()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Stop(stopCtx); err != nil {
		logging.Error("App", err, "Gateway server shutdown failed")
	}

	if closer, ok := a.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Error("App", err, "Artifact store close failed")
		}
	}
	return nil
}
