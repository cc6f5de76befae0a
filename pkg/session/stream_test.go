package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// HELPERS

func initSession(t *testing.T, transport *mockTransport) *Manager {
	t.Helper()
	mgr, err := New(context.Background(), transport)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	transport.stream.recvCh <- initiatedAck("u1")
	id, err := mgr.Init(context.Background(), schema.InitUploadRequest{
		Bucket:        "media",
		Key:           "a.bin",
		ContentLength: 150000,
	})
	require.NoError(t, err)
	require.Equal(t, "u1", id)
	return mgr
}

func collect(events <-chan schema.UploadEvent) []schema.UploadEvent {
	var got []schema.UploadEvent
	for event := range events {
		got = append(got, event)
	}
	return got
}

////////////////////////////////////////////////////////////////////////////////
// STREAM TESTS

func Test_Manager_Stream_Complete(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	stream := newMockStream()
	transport := &mockTransport{stream: stream}
	mgr := initSession(t, transport)

	body := bytes.Repeat([]byte("abcdef"), 25000) // 150000 bytes
	events, err := mgr.Stream(context.Background(), "u1", bytes.NewReader(body))
	require.NoError(err)

	// Wait for the full body to be forwarded, then play the backend
	<-stream.closeSend
	stream.recvCh <- progressFrame(65536, 150000)
	stream.recvCh <- progressFrame(150000, 150000)
	stream.recvCh <- resultFrame("etag-1", 150000)
	close(stream.recvCh)

	got := collect(events)
	require.NotEmpty(got)

	// Initiated leads, completed terminates, progress in between
	assert.Equal(schema.UploadInitiatedEvent, got[0].Type)
	assert.Equal("u1", got[0].SessionId)
	last := got[len(got)-1]
	assert.Equal(schema.UploadCompletedEvent, last.Type)
	assert.Equal("etag-1", last.Fingerprint)
	assert.Equal(int64(150000), last.Size)

	// Exactly one terminal event
	terminals := 0
	for _, event := range got {
		if event.Terminal() {
			terminals++
		}
	}
	assert.Equal(1, terminals)

	// Progress carries a derived percentage
	progress := got[1]
	assert.Equal(schema.UploadProgressEvent, progress.Type)
	assert.InDelta(43.7, progress.Percent, 0.1)

	// Every body byte was forwarded exactly once, in frames of at most
	// FrameSize, after the metadata frame
	frames := stream.sentFrames()
	var total int64
	for i, data := range frames[1:] {
		frame, err := wire.UnmarshalUploadChunkRequest(data)
		require.NoError(err)
		require.NotNil(frame.Chunk, "frame %d", i+1)
		assert.LessOrEqual(len(frame.Chunk), schema.FrameSize)
		total += int64(len(frame.Chunk))
	}
	assert.Equal(int64(len(body)), total)
	assert.Len(frames, 1+3) // metadata + ceil(150000 / 65536)

	// Completion evicts the session
	assert.Equal(0, mgr.Sessions())
}

func Test_Manager_Stream_NotFound(t *testing.T) {
	assert := assert.New(t)

	mgr, err := New(context.Background(), &mockTransport{stream: newMockStream()})
	assert.NoError(err)
	defer mgr.Close()

	_, err = mgr.Stream(context.Background(), "missing", bytes.NewReader(nil))
	assert.Error(err)
}

func Test_Manager_Stream_Conflict(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	stream := newMockStream()
	transport := &mockTransport{stream: stream}
	mgr := initSession(t, transport)

	// First stream holds the session; the body never completes
	pr, pw := io.Pipe()
	events, err := mgr.Stream(context.Background(), "u1", pr)
	require.NoError(err)

	// A second stream for the same session is refused
	_, err = mgr.Stream(context.Background(), "u1", bytes.NewReader(nil))
	assert.Error(err)

	// Release the first stream
	pw.Close()
	stream.recvErr = context.Canceled
	close(stream.recvCh)
	mgr.evict("u1")
	collect(events)
}

func Test_Manager_Stream_Abort_Silent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	stream := newMockStream()
	transport := &mockTransport{
		stream:     stream,
		invokeResp: wire.AbortUploadResponse{Success: true}.Marshal(),
	}
	mgr := initSession(t, transport)

	pr, pw := io.Pipe()
	events, err := mgr.Stream(context.Background(), "u1", pr)
	require.NoError(err)

	// Forward one full frame, then abort mid-flight
	_, err = pw.Write(bytes.Repeat([]byte("x"), schema.FrameSize))
	require.NoError(err)
	require.Eventually(func() bool {
		return len(stream.sentFrames()) == 2 // metadata + one chunk
	}, time.Second, time.Millisecond)
	require.NoError(mgr.Abort(context.Background(), "u1"))

	// Body bytes arriving after the abort are discarded, not forwarded.
	// The write runs in a goroutine since the pump may already have stopped
	// reading; closing the read side below releases it either way.
	written := make(chan struct{})
	go func() {
		defer close(written)
		pw.Write(bytes.Repeat([]byte("y"), schema.FrameSize))
		pw.Close()
	}()

	// Unblock the mocked stream the way a cancelled call would
	stream.recvErr = context.Canceled
	close(stream.recvCh)

	// The stream ends without a terminal event: no completed, no error
	got := collect(events)
	for _, event := range got {
		assert.False(event.Terminal(), "unexpected terminal event %q", event.Type)
	}
	pr.Close()
	<-written

	// The frame count is unchanged from before the abort
	assert.Len(stream.sentFrames(), 2)
	assert.Equal(0, mgr.Sessions())
}

func Test_Manager_Stream_BackendError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	stream := newMockStream()
	transport := &mockTransport{stream: stream}
	mgr := initSession(t, transport)

	body := bytes.Repeat([]byte("y"), 1000)
	events, err := mgr.Stream(context.Background(), "u1", bytes.NewReader(body))
	require.NoError(err)

	<-stream.closeSend
	stream.recvCh <- progressFrame(1000, 150000)
	stream.recvErr = errors.New("backend exploded")
	close(stream.recvCh)

	got := collect(events)
	require.NotEmpty(got)
	last := got[len(got)-1]
	assert.Equal(schema.UploadErrorEvent, last.Type)
	assert.Contains(last.Message, "backend exploded")

	terminals := 0
	for _, event := range got {
		if event.Terminal() {
			terminals++
		}
	}
	assert.Equal(1, terminals)
	assert.Equal(0, mgr.Sessions())
}

////////////////////////////////////////////////////////////////////////////////
// TIMEOUT TESTS

func Test_Manager_Timeout_Evicts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	stream := newMockStream()
	stream.recvCh <- initiatedAck("u1")
	mgr, err := New(ctx, &mockTransport{stream: stream}, WithTimeout(20*time.Millisecond))
	require.NoError(err)
	defer mgr.Close()

	_, err = mgr.Init(ctx, schema.InitUploadRequest{Bucket: "media", Key: "a.txt"})
	require.NoError(err)
	require.Equal(1, mgr.Sessions())

	assert.Eventually(func() bool {
		return mgr.Sessions() == 0
	}, time.Second, 5*time.Millisecond)
}
