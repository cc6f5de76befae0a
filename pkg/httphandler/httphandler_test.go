package httphandler_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	// Packages
	artifact "github.com/mutablelogic/go-gateway/pkg/artifact"
	httphandler "github.com/mutablelogic/go-gateway/pkg/httphandler"
	relay "github.com/mutablelogic/go-gateway/pkg/relay"
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
	session "github.com/mutablelogic/go-gateway/pkg/session"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
)

///////////////////////////////////////////////////////////////////////////////
// MOCK ROUTER

type mockRouter struct {
	mux   *http.ServeMux
	paths []string
	err   error
}

func newMockRouter() *mockRouter {
	return &mockRouter{mux: http.NewServeMux()}
}

func (m *mockRouter) RegisterFunc(path string, handler http.HandlerFunc, middleware bool, spec *openapi.PathItem) error {
	if m.err != nil {
		return m.err
	}
	m.paths = append(m.paths, path)
	m.mux.HandleFunc(path, handler)
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// MOCK TRANSPORT

// mockStream scripts the backend side of the bidirectional upload call.
type mockStream struct {
	mu      sync.Mutex
	sent    [][]byte
	recvCh  chan []byte
	recvErr error
}

func newMockStream() *mockStream {
	return &mockStream{recvCh: make(chan []byte, 16)}
}

func (s *mockStream) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), data...))
	return nil
}

func (s *mockStream) Recv() ([]byte, error) {
	data, ok := <-s.recvCh
	if !ok {
		if s.recvErr != nil {
			return nil, s.recvErr
		}
		return nil, io.EOF
	}
	return data, nil
}

func (s *mockStream) CloseSend() error { return nil }
func (s *mockStream) Close() error     { return nil }

// mockTransport serves a scripted bidi stream, scripted download frames and a
// canned abort reply.
type mockTransport struct {
	stream     *mockStream
	frames     [][]byte
	invokeResp []byte
}

func (t *mockTransport) Invoke(ctx context.Context, service, method string, req []byte) ([]byte, error) {
	return t.invokeResp, nil
}

func (t *mockTransport) ClientStream(ctx context.Context, service, method string, next func() ([]byte, error)) ([]byte, error) {
	return nil, nil
}

func (t *mockTransport) ServerStream(ctx context.Context, service, method string, req []byte) (*rpc.Multicast, error) {
	i := 0
	return rpc.NewMulticast(func() ([]byte, error) {
		if i >= len(t.frames) {
			return nil, io.EOF
		}
		data := t.frames[i]
		i++
		return data, nil
	}, func() {}), nil
}

func (t *mockTransport) BidiStream(ctx context.Context, service, method string) (rpc.Stream, error) {
	if t.stream == nil {
		return nil, errors.New("no stream scripted")
	}
	return t.stream, nil
}

///////////////////////////////////////////////////////////////////////////////
// FIXTURES

// newGateway wires a full handler stack over the mock transport and returns
// the mux plus the session manager for direct manipulation.
func newGateway(t *testing.T, transport *mockTransport) (*http.ServeMux, *session.Manager) {
	t.Helper()

	downloads, err := relay.New(transport)
	if err != nil {
		t.Fatalf("relay.New: %v", err)
	}
	artifacts, err := artifact.New(artifact.NewMemStore(16, artifact.TTL), downloads)
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	sessions, err := session.New(context.Background(), transport, session.WithWarmer(artifacts))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	router := newMockRouter()
	if err := httphandler.RegisterHandlers(router, sessions, downloads, artifacts); err != nil {
		t.Fatalf("RegisterHandlers: %v", err)
	}
	return router.mux, sessions
}

///////////////////////////////////////////////////////////////////////////////
// SSE HELPERS

// sseEvent holds one parsed Server-Sent Event.
type sseEvent struct {
	Name string
	Data string // raw JSON string
}

// parseSSEEvents parses a text/event-stream body into a slice of sseEvents.
func parseSSEEvents(body string) []sseEvent {
	var events []sseEvent
	var name, data string

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if name != "" {
				events = append(events, sseEvent{Name: name, Data: data})
			}
			name, data = "", ""
		}
	}
	// Flush any trailing event without a final blank line.
	if name != "" {
		events = append(events, sseEvent{Name: name, Data: data})
	}
	return events
}

// sseEventsByName filters a slice keeping only events with the given name.
func sseEventsByName(events []sseEvent, name string) []sseEvent {
	var out []sseEvent
	for _, e := range events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

///////////////////////////////////////////////////////////////////////////////
// WIRE HELPERS

func initiatedAck(id string) []byte {
	return wire.UploadChunkResponse{
		Initiated: &wire.UploadInitiated{UploadId: id},
	}.Marshal()
}

func progressFrame(uploaded, total int64) []byte {
	return wire.UploadChunkResponse{
		Progress: &wire.UploadProgress{BytesUploaded: uploaded, TotalBytes: total},
	}.Marshal()
}

func resultFrame(etag string, size int64) []byte {
	return wire.UploadChunkResponse{
		Result: &wire.UploadResult{ETag: etag, Size: size},
	}.Marshal()
}

func downloadMetadataFrame(contentType string, contentLength int64) []byte {
	return wire.DownloadChunkResponse{Metadata: &wire.DownloadMetadata{
		Bucket:        "media",
		Key:           "a.txt",
		ContentType:   contentType,
		ContentLength: contentLength,
		ETag:          "etag-1",
	}}.Marshal()
}

func downloadChunkFrame(data []byte) []byte {
	return wire.DownloadChunkResponse{Chunk: data}.Marshal()
}
