package relay

import (
	"io"
	"sync"

	// Packages
	rpc "github.com/mutablelogic/go-gateway/pkg/rpc"
	wire "github.com/mutablelogic/go-gateway/pkg/wire"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// reader exposes the remaining download stream as an io.ReadCloser. Metadata
// messages arriving after the first chunk are skipped; only chunk payloads
// become body bytes.
type reader struct {
	ch       <-chan []byte
	mc       *rpc.Multicast
	unsub    func()
	buf      []byte
	sawChunk bool
	err      error

	closeOnce sync.Once
}

var _ io.ReadCloser = (*reader)(nil)

////////////////////////////////////////////////////////////////////////////////
// io.ReadCloser

func (r *reader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		data, ok := <-r.ch
		if !ok {
			switch {
			case r.mc.Err() != nil:
				r.err = r.mc.Err()
			case !r.sawChunk:
				r.err = ErrEmptyObject
			default:
				r.err = io.EOF
			}
			return 0, r.err
		}

		msg, err := wire.UnmarshalDownloadChunkResponse(data)
		if err != nil {
			r.err = err
			return 0, r.err
		}
		if msg.Chunk != nil {
			r.buf = msg.Chunk
			r.sawChunk = true
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *reader) Close() error {
	r.closeOnce.Do(func() {
		r.unsub()
		r.mc.Close()
	})
	return nil
}
