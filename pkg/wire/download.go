package wire

import (
	// Packages
	protowire "google.golang.org/protobuf/encoding/protowire"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// DownloadObjectRequest opens a download stream for one object.
type DownloadObjectRequest struct {
	Bucket string
	Key    string
}

// DownloadMetadata describes the object being downloaded. The backend usually
// sends it before the first chunk, but the gateway tolerates either order.
type DownloadMetadata struct {
	Bucket        string
	Key           string
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  string
}

// DownloadChunkResponse is the unit received on the download stream: exactly
// one of Metadata or Chunk is set.
type DownloadChunkResponse struct {
	TraceId  string
	Metadata *DownloadMetadata
	Chunk    []byte
}

////////////////////////////////////////////////////////////////////////////////
// MARSHAL

func (m DownloadObjectRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Key)
	return b
}

func (m DownloadChunkResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.TraceId)
	switch {
	case m.Metadata != nil:
		var inner []byte
		inner = appendString(inner, 1, m.Metadata.Bucket)
		inner = appendString(inner, 2, m.Metadata.Key)
		inner = appendString(inner, 3, m.Metadata.ContentType)
		inner = appendInt64(inner, 4, m.Metadata.ContentLength)
		inner = appendString(inner, 5, m.Metadata.ETag)
		inner = appendString(inner, 6, m.Metadata.LastModified)
		b = appendBytes(b, 2, inner)
	case m.Chunk != nil:
		b = appendBytes(b, 3, m.Chunk)
	}
	return b
}

////////////////////////////////////////////////////////////////////////////////
// UNMARSHAL

func UnmarshalDownloadObjectRequest(data []byte) (*DownloadObjectRequest, error) {
	result := new(DownloadObjectRequest)
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
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func UnmarshalDownloadChunkResponse(data []byte) (*DownloadChunkResponse, error) {
	result := new(DownloadChunkResponse)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			result.TraceId, data, err = consumeString(data)
		case num == 2 && typ == protowire.BytesType:
			var inner []byte
			if inner, data, err = consumeBytes(data); err != nil {
				return nil, err
			} else if result.Metadata, err = unmarshalDownloadMetadata(inner); err != nil {
				return nil, err
			}
		case num == 3 && typ == protowire.BytesType:
			result.Chunk, data, err = consumeBytes(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func unmarshalDownloadMetadata(data []byte) (*DownloadMetadata, error) {
	result := new(DownloadMetadata)
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
		case num == 5 && typ == protowire.BytesType:
			result.ETag, data, err = consumeString(data)
		case num == 6 && typ == protowire.BytesType:
			result.LastModified, data, err = consumeString(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
