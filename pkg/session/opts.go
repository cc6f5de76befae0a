package session

import (
	"time"

	// Packages
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for session manager configuration.
type Opt func(*opts) error

type opts struct {
	tracer  trace.Tracer
	timeout time.Duration
	warmer  Warmer
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

// WithTimeout sets the absolute session lifetime ceiling. Zero or negative
// durations keep the default.
func WithTimeout(timeout time.Duration) Opt {
	return func(o *opts) error {
		if timeout > 0 {
			o.timeout = timeout
		}
		return nil
	}
}

// WithWarmer sets the artifact warmer invoked after an image upload
// completes. Warm-up runs detached from the upload response.
func WithWarmer(warmer Warmer) Opt {
	return func(o *opts) error {
		o.warmer = warmer
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		timeout: DefaultTimeout,
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Return success
	return o, nil
}
