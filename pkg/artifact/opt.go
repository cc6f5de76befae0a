package artifact

import (
	// Packages
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for artifact cache configuration.
type Opt func(*opts) error

type opts struct {
	tracer trace.Tracer
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTracer sets the tracer used for tracing operations.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	var o opts
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}
	return o, nil
}
