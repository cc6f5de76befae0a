// Package rpc adapts the backend's binary RPC interface to the rest of the
// gateway. A Transport exposes the four call shapes over opaque byte
// payloads; the production implementation multiplexes calls over one cached
// gRPC client connection per backend service.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Transport is the contract between the gateway and the backend RPC surface.
// All payloads are opaque bytes; encoding is the caller's concern (pkg/wire).
type Transport interface {
	// Invoke executes a unary call and returns the single reply.
	Invoke(ctx context.Context, service, method string, req []byte) ([]byte, error)

	// ClientStream sends each chunk produced by next, half-closes when next
	// returns io.EOF, then waits for exactly one reply. If next returns any
	// other error the outbound call is cancelled and the error returned.
	ClientStream(ctx context.Context, service, method string, next func() ([]byte, error)) ([]byte, error)

	// ServerStream executes a server-streaming call. The returned Multicast
	// fans the reply sequence out to its subscribers; a subscriber receives
	// every message emitted after its subscription, at most once.
	ServerStream(ctx context.Context, service, method string, req []byte) (*Multicast, error)

	// BidiStream opens a bidirectional stream. Send and receive timing are
	// independent; no ordering between the two directions is assumed beyond
	// what the backend protocol defines.
	BidiStream(ctx context.Context, service, method string) (Stream, error)
}

// Stream is one bidirectional call in flight.
type Stream interface {
	// Send forwards one message to the backend.
	Send(data []byte) error

	// Recv returns the next backend message, io.EOF on clean end of stream.
	Recv() ([]byte, error)

	// CloseSend half-closes the outbound side, signalling no more data.
	CloseSend() error

	// Close aborts the call. In-flight operations return with a cancellation
	// error rather than running to completion.
	Close() error
}

////////////////////////////////////////////////////////////////////////////////
// ERRORS

// ErrTransport wraps network and connection failures. Retrying is at the
// caller's discretion; the transport never retries.
var ErrTransport = errors.New("transport error")

// Err wraps err as a transport error, preserving clean end-of-stream and
// cancellation so callers can distinguish them with errors.Is.
func Err(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrTransport, err)
}
