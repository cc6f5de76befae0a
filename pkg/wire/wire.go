// Package wire encodes and decodes the binary messages exchanged with the
// backend object service. The backend speaks standard protobuf; the gateway
// treats payloads as opaque bytes at the transport layer and uses the
// low-level protowire package here rather than generated stubs, since the
// message set is small and stable.
package wire

import (
	// Packages
	protowire "google.golang.org/protobuf/encoding/protowire"
)

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	// ObjectService is the fully-qualified name of the backend object service.
	ObjectService = "object.ObjectService"

	// Methods on ObjectService consumed by the gateway.
	MethodUploadObject   = "UploadObject"   // bidirectional streaming
	MethodDownloadObject = "DownloadObject" // server streaming
	MethodAbortUpload    = "AbortUpload"    // unary
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// FullMethod returns the gRPC full method name for a service and method.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendBytes(b []byte, num protowire.Number, data []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

// skipField consumes an unknown field value, returning the remaining buffer.
func skipField(data []byte, num protowire.Number, typ protowire.Type) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return data[n:], nil
}

func consumeString(data []byte) (string, []byte, error) {
	v, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", nil, protowire.ParseError(n)
	}
	return v, data[n:], nil
}

func consumeBytes(data []byte) ([]byte, []byte, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, nil, protowire.ParseError(n)
	}
	return v, data[n:], nil
}

func consumeInt64(data []byte) (int64, []byte, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, nil, protowire.ParseError(n)
	}
	return int64(v), data[n:], nil
}
