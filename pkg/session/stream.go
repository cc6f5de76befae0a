package session

import (
	"context"
	"errors"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	ref "github.com/mutablelogic/go-server/pkg/ref"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Stream supplies the raw byte stream of the file body for a registered
// session. The body is re-chunked into fixed-size frames before forwarding
// to the backend, and every backend event is relayed in order on the
// returned channel. The channel carries exactly one terminal event — except
// on abort or client disconnect, where it is closed without one — and is
// closed when the session terminates. ctx should be the lifetime of the
// consuming HTTP request: when it ends, event delivery stops.
func (m *Manager) Stream(ctx context.Context, id string, body io.Reader) (<-chan schema.UploadEvent, error) {
	session := m.get(id)
	if session == nil {
		return nil, httpresponse.ErrNotFound.Withf("session %q not found", id)
	}
	if !session.streaming.CompareAndSwap(false, true) {
		return nil, httpresponse.ErrConflict.Withf("session %q is already streaming", id)
	}

	events := make(chan schema.UploadEvent, eventBuffer)

	// The acknowledged initiation leads the event sequence.
	events <- schema.InitiatedEvent(id)

	go m.forward(session, body)
	go m.relay(ctx, session, events)

	return events, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// forward pulls the inbound body in arbitrary-sized reads, re-chunks into
// FrameSize frames and forwards them on the session's outbound sink. At end
// of input the partial final frame is flushed and the sink half-closed,
// which triggers the backend to compute the final result. A body read
// failure (client disconnect) still half-closes the sink so the backend is
// not left waiting.
func (m *Manager) forward(s *Session, body io.Reader) {
	buf := make([]byte, schema.FrameSize)
	for {
		// A closed sink (abort or timeout) makes forwarding a no-op.
		if s.sinkClosed.Load() {
			return
		}

		n, err := io.ReadFull(body, buf)
		if n > 0 {
			frame := wire.UploadChunkRequest{Chunk: buf[:n]}
			if s.sinkClosed.Load() {
				return
			}
			if err := s.stream.Send(frame.Marshal()); err != nil {
				// The failure surfaces on the receive side; nothing to do here.
				return
			}
			s.bytesSent.Add(int64(n))
			s.chunksSent.Add(1)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				ref.Log(s.ctx).With("session", s.id).Debugf(s.ctx, "body read failed: %v", err)
			}
			s.closeSink()
			s.stream.CloseSend()
			return
		}
	}
}

// relay consumes backend events and pushes them, in order and without
// coalescing, onto the event channel. Exactly one terminal event is emitted;
// an aborted session emits nothing further. All exits evict the session.
func (m *Manager) relay(ctx context.Context, s *Session, events chan<- schema.UploadEvent) {
	defer close(events)

	for {
		data, err := s.stream.Recv()
		if err != nil {
			// An abort or timeout cancels the session context; that path is
			// deliberate and produces no error event.
			if s.aborted() || errors.Is(err, context.Canceled) {
				m.evict(s.id)
				return
			}
			message := "upload stream ended unexpectedly"
			if !errors.Is(err, io.EOF) {
				message = err.Error()
			}
			m.evict(s.id)
			emit(ctx, events, schema.ErrorEvent(message))
			return
		}

		resp, err := wire.UnmarshalUploadChunkResponse(data)
		if err != nil {
			m.evict(s.id)
			emit(ctx, events, schema.ErrorEvent(err.Error()))
			return
		}

		switch {
		case resp.Progress != nil:
			if !emit(ctx, events, schema.ProgressEvent(resp.Progress.BytesUploaded, resp.Progress.TotalBytes)) {
				// Consumer is gone; stop the session rather than relay into
				// the void.
				m.evict(s.id)
				return
			}
		case resp.Result != nil:
			m.evict(s.id)
			m.warm(resp.Result.ETag, s.bucket, s.key)
			emit(ctx, events, schema.CompletedEvent(resp.Result.ETag, resp.Result.Size))
			return
		}
	}
}

// emit delivers an event unless the consumer's context has ended.
func emit(ctx context.Context, events chan<- schema.UploadEvent, event schema.UploadEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
