package wire

import (
	"errors"

	// Packages
	protowire "google.golang.org/protobuf/encoding/protowire"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// UploadMetadata is the first (and only) metadata frame of an upload stream.
type UploadMetadata struct {
	Bucket        string
	Key           string
	ContentType   string
	ContentLength int64
}

// UploadChunkRequest is the unit sent to the backend on the upload stream:
// exactly one of Metadata or Chunk is set.
type UploadChunkRequest struct {
	Metadata *UploadMetadata
	Chunk    []byte
}

// UploadInitiated acknowledges an upload and assigns the session id.
type UploadInitiated struct {
	UploadId string
	Bucket   string
	Key      string
}

// UploadProgress reports backend-side commit progress.
type UploadProgress struct {
	PartNumber    int64
	BytesUploaded int64
	TotalBytes    int64
}

// UploadResult is the backend's terminal success message.
type UploadResult struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// UploadChunkResponse is the unit received from the backend on the upload
// stream: exactly one of Initiated, Progress or Result is set.
type UploadChunkResponse struct {
	TraceId   string
	Initiated *UploadInitiated
	Progress  *UploadProgress
	Result    *UploadResult
}

////////////////////////////////////////////////////////////////////////////////
// MARSHAL

// Marshal encodes the request. The oneof wrapper means a chunk frame costs a
// tag and length prefix on top of the chunk bytes, nothing more.
func (m UploadChunkRequest) Marshal() []byte {
	var b []byte
	if m.Metadata != nil {
		b = appendBytes(b, 1, m.Metadata.marshal())
	} else if m.Chunk != nil {
		b = appendBytes(b, 2, m.Chunk)
	}
	return b
}

func (m UploadMetadata) marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Key)
	b = appendString(b, 3, m.ContentType)
	b = appendInt64(b, 4, m.ContentLength)
	return b
}

func (m UploadChunkResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.TraceId)
	switch {
	case m.Initiated != nil:
		var inner []byte
		inner = appendString(inner, 1, m.Initiated.UploadId)
		inner = appendString(inner, 2, m.Initiated.Bucket)
		inner = appendString(inner, 3, m.Initiated.Key)
		b = appendBytes(b, 2, inner)
	case m.Progress != nil:
		var inner []byte
		inner = appendInt64(inner, 1, m.Progress.PartNumber)
		inner = appendInt64(inner, 2, m.Progress.BytesUploaded)
		inner = appendInt64(inner, 3, m.Progress.TotalBytes)
		b = appendBytes(b, 3, inner)
	case m.Result != nil:
		var inner []byte
		inner = appendString(inner, 1, m.Result.Bucket)
		inner = appendString(inner, 2, m.Result.Key)
		inner = appendString(inner, 3, m.Result.ETag)
		inner = appendInt64(inner, 4, m.Result.Size)
		b = appendBytes(b, 4, inner)
	}
	return b
}

////////////////////////////////////////////////////////////////////////////////
// UNMARSHAL

// UnmarshalUploadChunkRequest decodes an upload frame. Used by tests which
// play the backend side of the stream.
func UnmarshalUploadChunkRequest(data []byte) (*UploadChunkRequest, error) {
	result := new(UploadChunkRequest)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			var inner []byte
			if inner, data, err = consumeBytes(data); err != nil {
				return nil, err
			} else if result.Metadata, err = unmarshalUploadMetadata(inner); err != nil {
				return nil, err
			}
		case num == 2 && typ == protowire.BytesType:
			if result.Chunk, data, err = consumeBytes(data); err != nil {
				return nil, err
			}
		default:
			if data, err = skipField(data, num, typ); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// UnmarshalUploadChunkResponse decodes a backend event frame. Exactly one of
// the oneof members must be set or an error is returned, since the session
// state machine depends on the discrimination.
func UnmarshalUploadChunkResponse(data []byte) (*UploadChunkResponse, error) {
	result := new(UploadChunkResponse)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			if result.TraceId, data, err = consumeString(data); err != nil {
				return nil, err
			}
		case num == 2 && typ == protowire.BytesType:
			var inner []byte
			if inner, data, err = consumeBytes(data); err != nil {
				return nil, err
			} else if result.Initiated, err = unmarshalUploadInitiated(inner); err != nil {
				return nil, err
			}
		case num == 3 && typ == protowire.BytesType:
			var inner []byte
			if inner, data, err = consumeBytes(data); err != nil {
				return nil, err
			} else if result.Progress, err = unmarshalUploadProgress(inner); err != nil {
				return nil, err
			}
		case num == 4 && typ == protowire.BytesType:
			var inner []byte
			if inner, data, err = consumeBytes(data); err != nil {
				return nil, err
			} else if result.Result, err = unmarshalUploadResult(inner); err != nil {
				return nil, err
			}
		default:
			if data, err = skipField(data, num, typ); err != nil {
				return nil, err
			}
		}
	}
	if result.Initiated == nil && result.Progress == nil && result.Result == nil {
		return nil, errors.New("upload response without initiated, progress or result")
	}
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func unmarshalUploadMetadata(data []byte) (*UploadMetadata, error) {
	result := new(UploadMetadata)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			result.Bucket, data, err = consumeString(data)
		case num == 2 && typ == protowire.BytesType:
			result.Key, data, err = consumeString(data)
		case num == 3 && typ == protowire.BytesType:
			result.ContentType, data, err = consumeString(data)
		case num == 4 && typ == protowire.VarintType:
			result.ContentLength, data, err = consumeInt64(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func unmarshalUploadInitiated(data []byte) (*UploadInitiated, error) {
	result := new(UploadInitiated)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			result.UploadId, data, err = consumeString(data)
		case num == 2 && typ == protowire.BytesType:
			result.Bucket, data, err = consumeString(data)
		case num == 3 && typ == protowire.BytesType:
			result.Key, data, err = consumeString(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func unmarshalUploadProgress(data []byte) (*UploadProgress, error) {
	result := new(UploadProgress)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			result.PartNumber, data, err = consumeInt64(data)
		case num == 2 && typ == protowire.VarintType:
			result.BytesUploaded, data, err = consumeInt64(data)
		case num == 3 && typ == protowire.VarintType:
			result.TotalBytes, data, err = consumeInt64(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func unmarshalUploadResult(data []byte) (*UploadResult, error) {
	result := new(UploadResult)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			result.Bucket, data, err = consumeString(data)
		case num == 2 && typ == protowire.BytesType:
			result.Key, data, err = consumeString(data)
		case num == 3 && typ == protowire.BytesType:
			result.ETag, data, err = consumeString(data)
		case num == 4 && typ == protowire.VarintType:
			result.Size, data, err = consumeInt64(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
