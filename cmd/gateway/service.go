package main

import (
	"fmt"
	"net/http"
	"time"

	// Packages
	artifact "github.com/mutablelogic/go-gateway/pkg/artifact"
	httphandler "github.com/mutablelogic/go-gateway/pkg/httphandler"
	relay "github.com/mutablelogic/go-gateway/pkg/relay"
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
	session "github.com/mutablelogic/go-gateway/pkg/session"
	version "github.com/mutablelogic/go-gateway/pkg/version"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
	ref "github.com/mutablelogic/go-server/pkg/ref"
	otel "go.opentelemetry.io/otel"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServiceCommands struct {
	Run RunCommand `cmd:"" group:"SERVICE" help:"Run the gateway service"`
}

type RunCommand struct {
	Redis     string        `env:"GATEWAY_REDIS" optional:"" help:"Redis URL for the artifact cache (in-memory when unset)"`
	CacheSize int           `default:"1024" help:"In-memory artifact cache capacity"`
	Timeout   time.Duration `default:"5m" help:"Upload session lifetime ceiling"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunCommand) Run(app *Globals) error {
	tracer := otel.Tracer("gateway")

	// Connect the backend transport
	transport, err := rpc.New(app.ctx, app.Backend, rpc.WithTracer(tracer))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	defer transport.Close()

	// Download relay
	downloads, err := relay.New(transport, relay.WithTracer(tracer))
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	// Artifact cache, backed by redis when configured
	var store artifact.Store
	if cmd.Redis != "" {
		redis, err := artifact.NewRedisStore(cmd.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redis.Close()
		store = redis
	} else {
		store = artifact.NewMemStore(cmd.CacheSize, artifact.TTL)
	}
	artifacts, err := artifact.New(store, downloads, artifact.WithTracer(tracer))
	if err != nil {
		return fmt.Errorf("failed to create artifact cache: %w", err)
	}

	// Upload session manager, warming thumbnails on completed image uploads
	sessions, err := session.New(app.ctx, transport,
		session.WithTracer(tracer),
		session.WithTimeout(cmd.Timeout),
		session.WithWarmer(artifacts),
	)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	defer sessions.Close()

	return serve(app, sessions, downloads, artifacts)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// serve registers HTTP handlers and runs the server until context is done.
func serve(app *Globals, sessions *session.Manager, downloads *relay.Relay, artifacts *artifact.Cache) error {
	// Create the router
	router, err := httprouter.NewRouter(app.ctx, app.Prefix, app.Origin, "gateway", version.Version())
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	// Register gateway HTTP handlers
	if err := httphandler.RegisterHandlers(router, sessions, downloads, artifacts); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	// Create and run the HTTP server
	srv, err := httpserver.New(app.Listen, http.Handler(router), nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ref.Log(app.ctx).Print(app.ctx, "gateway@", version.Version(), " started on ", app.Listen)
	if err := srv.Run(app.ctx); err != nil {
		return err
	}
	ref.Log(app.ctx).Print(app.ctx, "gateway stopped")
	return nil
}
