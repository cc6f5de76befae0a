package rpc

import (
	// Packages
	trace "go.opentelemetry.io/otel/trace"
	grpc "google.golang.org/grpc"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for transport configuration.
type Opt func(*opts) error

type opts struct {
	target   string
	tracer   trace.Tracer
	dialOpts []grpc.DialOption
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTracer sets the tracer used for tracing calls.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithDialOptions appends additional gRPC dial options, applied after the
// defaults (insecure credentials, raw codec).
func WithDialOptions(opt ...grpc.DialOption) Opt {
	return func(o *opts) error {
		o.dialOpts = append(o.dialOpts, opt...)
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Return success
	return o, nil
}
