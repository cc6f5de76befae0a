package wire

import (
	// Packages
	protowire "google.golang.org/protobuf/encoding/protowire"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// AbortUploadRequest cancels an in-flight upload on the backend.
type AbortUploadRequest struct {
	Bucket   string
	Key      string
	UploadId string
}

// AbortUploadResponse acknowledges the abort.
type AbortUploadResponse struct {
	TraceId  string
	Success  bool
	Bucket   string
	Key      string
	UploadId string
}

////////////////////////////////////////////////////////////////////////////////
// MARSHAL

func (m AbortUploadRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Key)
	b = appendString(b, 3, m.UploadId)
	return b
}

func (m AbortUploadResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.TraceId)
	b = appendBool(b, 2, m.Success)
	b = appendString(b, 3, m.Bucket)
	b = appendString(b, 4, m.Key)
	b = appendString(b, 5, m.UploadId)
	return b
}

////////////////////////////////////////////////////////////////////////////////
// UNMARSHAL

func UnmarshalAbortUploadRequest(data []byte) (*AbortUploadRequest, error) {
	result := new(AbortUploadRequest)
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
			result.UploadId, data, err = consumeString(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func UnmarshalAbortUploadResponse(data []byte) (*AbortUploadResponse, error) {
	result := new(AbortUploadResponse)
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
		case num == 2 && typ == protowire.VarintType:
			var v int64
			if v, data, err = consumeInt64(data); err == nil {
				result.Success = v != 0
			}
		case num == 3 && typ == protowire.BytesType:
			result.Bucket, data, err = consumeString(data)
		case num == 4 && typ == protowire.BytesType:
			result.Key, data, err = consumeString(data)
		case num == 5 && typ == protowire.BytesType:
			result.UploadId, data, err = consumeString(data)
		default:
			data, err = skipField(data, num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
