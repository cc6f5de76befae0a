package rpc

import (
	"context"
	"io"
	"sync"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	grpc "google.golang.org/grpc"
	insecure "google.golang.org/grpc/credentials/insecure"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// GRPC is a Transport over gRPC. One client connection is created lazily per
// backend service name and cached for the lifetime of the transport; the
// connection is a process-lifetime resource and is never closed per call.
type GRPC struct {
	opts

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

var _ Transport = (*GRPC)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a transport dialling the given target (host:port). Connection
// establishment is lazy; constructing a connection handle is the only
// operation that can fail on address resolution.
func New(ctx context.Context, target string, opt ...Opt) (*GRPC, error) {
	self := new(GRPC)

	// Apply options
	if opts, err := applyOpts(opt); err != nil {
		return nil, err
	} else {
		self.opts = opts
	}

	// Set the target and connection table
	self.target = target
	self.conns = make(map[string]*grpc.ClientConn)

	// Return success
	return self, nil
}

// Close releases all cached connections.
func (t *GRPC) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result error
	for name, conn := range t.conns {
		if err := conn.Close(); err != nil {
			result = err
		}
		delete(t.conns, name)
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (t *GRPC) Invoke(ctx context.Context, service, method string, req []byte) ([]byte, error) {
	conn, err := t.conn(service)
	if err != nil {
		return nil, Err(err)
	}

	// OTEL span
	var result error
	child, endFunc := otel.StartSpan(t.tracer, ctx, spanName(service, method))
	defer func() { endFunc(result) }()

	var reply rawMessage
	if err := conn.Invoke(child, wire.FullMethod(service, method), &rawMessage{data: req}, &reply); err != nil {
		result = Err(err)
		return nil, result
	}
	return reply.data, nil
}

func (t *GRPC) ClientStream(ctx context.Context, service, method string, next func() ([]byte, error)) ([]byte, error) {
	conn, err := t.conn(service)
	if err != nil {
		return nil, Err(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    method,
		ClientStreams: true,
	}, wire.FullMethod(service, method))
	if err != nil {
		return nil, Err(err)
	}

	// Forward chunks until the producer signals completion with io.EOF.
	// A producer failure cancels the outbound call rather than leaving the
	// backend waiting on a half-open stream.
	for {
		chunk, err := next()
		if err == io.EOF {
			break
		} else if err != nil {
			cancel()
			return nil, err
		}
		if err := cs.SendMsg(&rawMessage{data: chunk}); err != nil {
			return nil, Err(err)
		}
	}
	if err := cs.CloseSend(); err != nil {
		return nil, Err(err)
	}

	// Exactly one reply is expected.
	var reply rawMessage
	if err := cs.RecvMsg(&reply); err != nil {
		return nil, Err(err)
	}
	return reply.data, nil
}

func (t *GRPC) ServerStream(ctx context.Context, service, method string, req []byte) (*Multicast, error) {
	conn, err := t.conn(service)
	if err != nil {
		return nil, Err(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    method,
		ServerStreams: true,
	}, wire.FullMethod(service, method))
	if err != nil {
		cancel()
		return nil, Err(err)
	}
	if err := cs.SendMsg(&rawMessage{data: req}); err != nil {
		cancel()
		return nil, Err(err)
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, Err(err)
	}

	return NewMulticast(func() ([]byte, error) {
		var msg rawMessage
		if err := cs.RecvMsg(&msg); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, Err(err)
		}
		return msg.data, nil
	}, cancel), nil
}

func (t *GRPC) BidiStream(ctx context.Context, service, method string) (Stream, error) {
	conn, err := t.conn(service)
	if err != nil {
		return nil, Err(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    method,
		ClientStreams: true,
		ServerStreams: true,
	}, wire.FullMethod(service, method))
	if err != nil {
		cancel()
		return nil, Err(err)
	}

	return &stream{cs: cs, cancel: cancel}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// conn returns the cached connection for a service, creating it on first
// use. The table lock makes creation single-winner: concurrent first calls
// for the same service never leave two live handles behind.
func (t *GRPC) conn(service string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conn, exists := t.conns[service]; exists {
		return conn, nil
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, t.dialOpts...)

	conn, err := grpc.NewClient(t.target, opts...)
	if err != nil {
		return nil, err
	}
	t.conns[service] = conn
	return conn, nil
}

func spanName(service, method string) string {
	return "rpc." + service + "/" + method
}

////////////////////////////////////////////////////////////////////////////////
// STREAM

type stream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
}

func (s *stream) Send(data []byte) error {
	return Err(s.cs.SendMsg(&rawMessage{data: data}))
}

func (s *stream) Recv() ([]byte, error) {
	var msg rawMessage
	if err := s.cs.RecvMsg(&msg); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, Err(err)
	}
	return msg.data, nil
}

func (s *stream) CloseSend() error {
	return Err(s.cs.CloseSend())
}

func (s *stream) Close() error {
	s.cancel()
	return nil
}
