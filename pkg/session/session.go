package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	// Packages
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Session is one in-flight upload between initiation and its terminal event.
// It is mutated only by the single flow handling the stream phase plus the
// timeout evictor; the two meet at teardown, which is idempotent.
type Session struct {
	id            string
	bucket        string
	key           string
	contentType   string
	contentLength int64

	bytesSent  atomic.Int64
	chunksSent atomic.Int64

	stream rpc.Stream
	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Timer

	sinkClosed   atomic.Bool // once set, chunk forwarding is a no-op
	streaming    atomic.Bool // at most one stream phase per session
	teardownOnce sync.Once
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Id returns the backend-assigned session id.
func (s *Session) Id() string {
	return s.id
}

// BytesSent returns the number of body bytes forwarded to the backend so far.
func (s *Session) BytesSent() int64 {
	return s.bytesSent.Load()
}

// ChunksSent returns the number of frames forwarded to the backend so far.
func (s *Session) ChunksSent() int64 {
	return s.chunksSent.Load()
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// aborted reports whether the session context has been cancelled by an
// explicit abort or by the timeout evictor.
func (s *Session) aborted() bool {
	return s.ctx.Err() != nil
}

// closeSink marks the outbound sink closed. Frame forwarding observes the
// mark and stops without error.
func (s *Session) closeSink() {
	s.sinkClosed.Store(true)
}

// teardown releases the session's resources: the timeout timer, the outbound
// sink and the session context. Safe to call any number of times; the
// completion, abort, timeout and error paths all converge here.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.closeSink()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.cancel()
	})
}
