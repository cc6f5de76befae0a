// Package session owns the lifecycle of streaming uploads: initiation over a
// bidirectional backend call, chunked transfer with progress relay, abort,
// and timeout eviction. The session table is the only shared mutable state
// in the gateway and is owned by one Manager instance, injected into
// whatever handles HTTP requests.
package session

import (
	"context"
	"sync"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	ref "github.com/mutablelogic/go-server/pkg/ref"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Warmer populates derived artifacts for an uploaded object. Implemented by
// the artifact cache; failures never fail the upload.
type Warmer interface {
	Warm(ctx context.Context, fingerprint, bucket, key string) error
}

type Manager struct {
	opts
	transport rpc.Transport
	ctx       context.Context // base context for session lifetimes

	mu       sync.Mutex
	sessions map[string]*Session

	wg sync.WaitGroup // detached warm-up tasks, drained on Close
}

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	// DefaultTimeout is the absolute ceiling on a session's lifetime,
	// measured from initiation. There is no renewal.
	DefaultTimeout = 5 * time.Minute

	// eventBuffer bounds the channel between the backend-consuming task and
	// the HTTP-writing task during the stream phase.
	eventBuffer = 16

	// drainTimeout bounds how long Close waits for detached warm-up tasks.
	drainTimeout = 10 * time.Second
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a session manager. Sessions derive their lifetime from ctx,
// not from the HTTP request that initiated them.
func New(ctx context.Context, transport rpc.Transport, opt ...Opt) (*Manager, error) {
	self := new(Manager)

	// Apply options
	if opts, err := applyOpts(opt); err != nil {
		return nil, err
	} else {
		self.opts = opts
	}

	// Set the transport and session table
	if transport == nil {
		return nil, httpresponse.ErrInternalError.With("missing transport")
	}
	self.transport = transport
	self.ctx = ctx
	self.sessions = make(map[string]*Session)

	// Return success
	return self, nil
}

// Close evicts all live sessions and waits, bounded, for detached warm-up
// tasks to drain.
func (m *Manager) Close() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.evict(id)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Init begins an upload: it opens the bidirectional backend call, sends the
// metadata frame and waits for exactly one "initiated" acknowledgement. On
// success the session is registered and its absolute timeout armed. On any
// failure before the acknowledgement, nothing is registered.
func (m *Manager) Init(ctx context.Context, req schema.InitUploadRequest) (string, error) {
	if req.Bucket == "" || req.Key == "" {
		return "", httpresponse.ErrBadRequest.With("missing bucket or key")
	}
	if req.ContentLength < 0 {
		return "", httpresponse.ErrBadRequest.With("negative content length")
	}

	// OTEL span
	var result error
	child, endFunc := otel.StartSpan(m.tracer, ctx, "session.Init")
	defer func() { endFunc(result) }()
	ctx = child

	// The session outlives the initiating HTTP request, so the stream is
	// bound to the manager's base context, cancelled per-session.
	sctx, cancel := context.WithCancel(m.ctx)
	stream, err := m.transport.BidiStream(sctx, wire.ObjectService, wire.MethodUploadObject)
	if err != nil {
		cancel()
		result = err
		return "", err
	}

	// Metadata-only first frame
	metadata := wire.UploadChunkRequest{Metadata: &wire.UploadMetadata{
		Bucket:        req.Bucket,
		Key:           req.Key,
		ContentType:   req.ContentType,
		ContentLength: req.ContentLength,
	}}
	if err := stream.Send(metadata.Marshal()); err != nil {
		stream.Close()
		cancel()
		result = err
		return "", err
	}

	// Exactly one acknowledgement carrying the backend-assigned session id
	data, err := stream.Recv()
	if err != nil {
		stream.Close()
		cancel()
		result = err
		return "", err
	}
	ack, err := wire.UnmarshalUploadChunkResponse(data)
	if err != nil {
		stream.Close()
		cancel()
		result = err
		return "", err
	}
	if ack.Initiated == nil || ack.Initiated.UploadId == "" {
		stream.Close()
		cancel()
		result = httpresponse.ErrInternalError.With("backend did not acknowledge upload initiation")
		return "", result
	}

	session := &Session{
		id:            ack.Initiated.UploadId,
		bucket:        req.Bucket,
		key:           req.Key,
		contentType:   req.ContentType,
		contentLength: req.ContentLength,
		stream:        stream,
		ctx:           sctx,
		cancel:        cancel,
	}

	// Register, guarding against a duplicate id from the backend
	m.mu.Lock()
	if _, exists := m.sessions[session.id]; exists {
		m.mu.Unlock()
		stream.Close()
		cancel()
		result = httpresponse.ErrConflict.Withf("duplicate session %q", session.id)
		return "", result
	}
	m.sessions[session.id] = session
	m.mu.Unlock()

	// Arm the absolute timeout. Firing closes the sink and discards the
	// session unconditionally.
	session.timer = time.AfterFunc(m.timeout, func() {
		ref.Log(m.ctx).With("session", session.id).Debugf(m.ctx, "session timed out")
		m.evict(session.id)
	})

	ref.Log(ctx).With("session", session.id).Debugf(ctx, "upload initiated")
	return session.id, nil
}

// Abort cancels an in-flight upload: the outbound sink is closed, an abort
// is forwarded to the backend and the session is evicted. The session emits
// no error event on this path; its stream simply stops.
func (m *Manager) Abort(ctx context.Context, id string) error {
	session := m.get(id)
	if session == nil {
		return httpresponse.ErrNotFound.Withf("session %q not found", id)
	}

	// OTEL span
	var result error
	child, endFunc := otel.StartSpan(m.tracer, ctx, "session.Abort")
	defer func() { endFunc(result) }()

	// Cancel the session before telling the backend, so in-flight frame
	// forwarding stops rather than racing the abort.
	m.evict(id)

	req := wire.AbortUploadRequest{Bucket: session.bucket, Key: session.key, UploadId: id}
	data, err := m.transport.Invoke(child, wire.ObjectService, wire.MethodAbortUpload, req.Marshal())
	if err != nil {
		result = err
		return err
	}
	if _, err := wire.UnmarshalAbortUploadResponse(data); err != nil {
		result = err
		return err
	}

	ref.Log(ctx).With("session", id).Debugf(ctx, "upload aborted")
	return nil
}

// Sessions returns the number of live sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (m *Manager) get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// evict removes a session from the table and releases its resources. Safe to
// call for unknown or already-evicted ids; the timeout firing after normal
// completion is a no-op.
func (m *Manager) evict(id string) {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if exists {
		session.teardown()
	}
}

// warm spawns a detached task populating the artifact cache for an uploaded
// image. Errors are logged and otherwise ignored; the task never outlives
// Close by more than the drain timeout.
func (m *Manager) warm(fingerprint, bucket, key string) {
	if m.warmer == nil || !schema.IsImagePath(key) {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), time.Minute)
		defer cancel()
		if err := m.warmer.Warm(ctx, fingerprint, bucket, key); err != nil {
			ref.Log(ctx).With("object", bucket+"/"+key).Debugf(ctx, "thumbnail warm-up failed: %v", err)
		}
	}()
}
