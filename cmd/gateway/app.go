package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Packages
	"github.com/alecthomas/kong"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Listen  string `env:"GATEWAY_LISTEN" default:"localhost:8080" help:"HTTP listen address"`
	Prefix  string `env:"GATEWAY_PREFIX" default:"/api/v1" help:"HTTP path prefix"`
	Origin  string `default:"*" help:"CORS origin"`
	Backend string `env:"GATEWAY_BACKEND" default:"localhost:9090" help:"Backend RPC target"`
	Debug   bool   `help:"Enable debug output"`
	Trace   bool   `help:"Enable trace output"`

	vars   kong.Vars `kong:"-"` // Variables for kong
	ctx    context.Context
	cancel context.CancelFunc
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) *Globals {
	// Set the vars
	app.vars = vars

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Return the app
	return &app
}

func (app *Globals) Close() error {
	app.cancel()
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// METHODS

func (app *Globals) Context() context.Context {
	return app.ctx
}

func (app *Globals) GetDebug() bool {
	return app.Debug || app.Trace
}
