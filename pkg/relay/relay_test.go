package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	// Packages
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// MOCKS

// mockTransport scripts the download stream: frames are returned in order,
// then the terminal error (io.EOF when nil).
type mockTransport struct {
	frames   [][]byte
	err      error
	lastReq  []byte
	openErr  error
	mu       sync.Mutex
	canceled bool
}

func (t *mockTransport) Invoke(ctx context.Context, service, method string, req []byte) ([]byte, error) {
	return nil, nil
}

func (t *mockTransport) ClientStream(ctx context.Context, service, method string, next func() ([]byte, error)) ([]byte, error) {
	return nil, nil
}

func (t *mockTransport) ServerStream(ctx context.Context, service, method string, req []byte) (*rpc.Multicast, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	t.lastReq = append([]byte(nil), req...)

	i := 0
	return rpc.NewMulticast(func() ([]byte, error) {
		if i >= len(t.frames) {
			if t.err != nil {
				return nil, t.err
			}
			return nil, io.EOF
		}
		data := t.frames[i]
		i++
		return data, nil
	}, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.canceled = true
	}), nil
}

func (t *mockTransport) BidiStream(ctx context.Context, service, method string) (rpc.Stream, error) {
	return nil, nil
}

////////////////////////////////////////////////////////////////////////////////
// HELPERS

func metadataFrame(contentType string, contentLength int64) []byte {
	return wire.DownloadChunkResponse{Metadata: &wire.DownloadMetadata{
		Bucket:        "media",
		Key:           "photos/cat.jpg",
		ContentType:   contentType,
		ContentLength: contentLength,
		ETag:          "etag-1",
	}}.Marshal()
}

func chunkFrame(data string) []byte {
	return wire.DownloadChunkResponse{Chunk: []byte(data)}.Marshal()
}

////////////////////////////////////////////////////////////////////////////////
// RELAY TESTS

func Test_Relay_MetadataFirst(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	transport := &mockTransport{frames: [][]byte{
		metadataFrame("image/jpeg", 10),
		chunkFrame("hello "),
		chunkFrame("world"),
	}}
	relay, err := New(transport)
	require.NoError(err)

	meta, body, err := relay.Open(context.Background(), "media", "photos/cat.jpg")
	require.NoError(err)
	defer body.Close()

	require.NotNil(meta)
	assert.Equal("image/jpeg", meta.ContentType)
	assert.Equal(int64(10), meta.ContentLength)
	assert.Equal("etag-1", meta.ETag)

	data, err := io.ReadAll(body)
	assert.NoError(err)
	assert.Equal("hello world", string(data))

	// The request named the object
	req, err := wire.UnmarshalDownloadObjectRequest(transport.lastReq)
	require.NoError(err)
	assert.Equal("media", req.Bucket)
	assert.Equal("photos/cat.jpg", req.Key)
}

func Test_Relay_ChunkFirst(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// No metadata frame at all; the stream must still surface completely
	transport := &mockTransport{frames: [][]byte{
		chunkFrame("raw "),
		chunkFrame("bytes"),
	}}
	relay, err := New(transport)
	require.NoError(err)

	meta, body, err := relay.Open(context.Background(), "media", "a.bin")
	require.NoError(err)
	defer body.Close()

	assert.Nil(meta)
	data, err := io.ReadAll(body)
	assert.NoError(err)
	assert.Equal("raw bytes", string(data))
}

func Test_Relay_LateMetadataSkipped(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Metadata arriving mid-stream is not body content
	transport := &mockTransport{frames: [][]byte{
		chunkFrame("first"),
		metadataFrame("text/plain", 10),
		chunkFrame("/last"),
	}}
	relay, err := New(transport)
	require.NoError(err)

	meta, body, err := relay.Open(context.Background(), "media", "a.txt")
	require.NoError(err)
	defer body.Close()

	assert.Nil(meta)
	data, err := io.ReadAll(body)
	assert.NoError(err)
	assert.Equal("first/last", string(data))
}

func Test_Relay_EmptyObject(t *testing.T) {
	assert := assert.New(t)

	transport := &mockTransport{}
	relay, err := New(transport)
	assert.NoError(err)

	_, _, err = relay.Open(context.Background(), "media", "a.txt")
	assert.ErrorIs(err, ErrEmptyObject)
}

func Test_Relay_MetadataOnly(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Metadata but no content: Open succeeds, the first Read reports it
	transport := &mockTransport{frames: [][]byte{
		metadataFrame("text/plain", 0),
	}}
	relay, err := New(transport)
	require.NoError(err)

	meta, body, err := relay.Open(context.Background(), "media", "a.txt")
	require.NoError(err)
	defer body.Close()

	assert.NotNil(meta)
	_, err = io.ReadAll(body)
	assert.ErrorIs(err, ErrEmptyObject)
}

func Test_Relay_MidStreamError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	bang := errors.New("stream broke")
	transport := &mockTransport{
		frames: [][]byte{chunkFrame("partial")},
		err:    bang,
	}
	relay, err := New(transport)
	require.NoError(err)

	_, body, err := relay.Open(context.Background(), "media", "a.bin")
	require.NoError(err)
	defer body.Close()

	// The error surfaces from Read, after the delivered bytes
	data := make([]byte, 7)
	n, err := io.ReadFull(body, data)
	assert.NoError(err)
	assert.Equal("partial", string(data[:n]))

	_, err = body.Read(data)
	assert.ErrorIs(err, bang)
}

func Test_Relay_Validation(t *testing.T) {
	assert := assert.New(t)

	relay, err := New(&mockTransport{})
	assert.NoError(err)

	_, _, err = relay.Open(context.Background(), "", "a.txt")
	assert.Error(err)
	_, _, err = relay.Open(context.Background(), "media", "")
	assert.Error(err)
}

func Test_Relay_CloseCancels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	transport := &mockTransport{frames: [][]byte{
		metadataFrame("text/plain", 100),
		chunkFrame("unread"),
	}}
	relay, err := New(transport)
	require.NoError(err)

	_, body, err := relay.Open(context.Background(), "media", "a.txt")
	require.NoError(err)

	assert.NoError(body.Close())
	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.True(transport.canceled)
}
