// Package relay converts the backend's push-based download stream into a
// pull-based byte stream usable directly as an HTTP response body. It blocks
// only until the first evidence of the object (metadata or first content
// chunk), so large downloads never wait on full buffering.
package relay

import (
	"context"
	"errors"
	"io"

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

type Relay struct {
	opts
	transport rpc.Transport
}

////////////////////////////////////////////////////////////////////////////////
// ERRORS

// ErrEmptyObject is returned when the backend completes the download stream
// without emitting any content chunk.
var ErrEmptyObject = errors.New("empty object")

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a download relay over the given transport.
func New(transport rpc.Transport, opt ...Opt) (*Relay, error) {
	self := new(Relay)

	// Apply options
	if opts, err := applyOpts(opt); err != nil {
		return nil, err
	} else {
		self.opts = opts
	}

	// Set the transport
	if transport == nil {
		return nil, httpresponse.ErrInternalError.With("missing transport")
	}
	self.transport = transport

	// Return success
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Open starts a download and returns as soon as either a metadata message or
// the first content chunk has been observed, whichever arrives first. The
// metadata is nil when the backend emitted content before metadata; later
// metadata messages are skipped by the returned reader. The reader signals a
// mid-stream backend error from Read rather than truncating silently, and
// returns ErrEmptyObject when the stream completes without content.
func (r *Relay) Open(ctx context.Context, bucket, key string) (*schema.DownloadMeta, io.ReadCloser, error) {
	if bucket == "" || key == "" {
		return nil, nil, httpresponse.ErrBadRequest.With("missing bucket or key")
	}

	// OTEL span
	var result error
	child, endFunc := otel.StartSpan(r.tracer, ctx, "relay.Open")
	defer func() { endFunc(result) }()

	req := wire.DownloadObjectRequest{Bucket: bucket, Key: key}
	mc, err := r.transport.ServerStream(child, wire.ObjectService, wire.MethodDownloadObject, req.Marshal())
	if err != nil {
		result = err
		return nil, nil, err
	}

	ch, unsub := mc.Subscribe()
	body := &reader{ch: ch, mc: mc, unsub: unsub}

	// Block until first evidence: metadata, content, termination.
	for {
		data, ok := <-ch
		if !ok {
			body.Close()
			if err := mc.Err(); err != nil {
				result = err
				return nil, nil, err
			}
			result = ErrEmptyObject
			return nil, nil, result
		}

		msg, err := wire.UnmarshalDownloadChunkResponse(data)
		if err != nil {
			body.Close()
			result = err
			return nil, nil, err
		}

		switch {
		case msg.Metadata != nil:
			meta := &schema.DownloadMeta{
				Bucket:        msg.Metadata.Bucket,
				Key:           msg.Metadata.Key,
				ContentType:   msg.Metadata.ContentType,
				ContentLength: msg.Metadata.ContentLength,
				ETag:          msg.Metadata.ETag,
				LastModified:  msg.Metadata.LastModified,
			}
			ref.Log(ctx).With("object", bucket+"/"+key).Debugf(ctx, "download metadata received")
			return meta, body, nil
		case msg.Chunk != nil:
			// Content before metadata: surface the stream immediately.
			body.buf = msg.Chunk
			body.sawChunk = true
			return nil, body, nil
		}
	}
}
