package schema

////////////////////////////////////////////////////////////////////////////////
// TYPES

const (
	SchemaName = "gateway"

	// FrameSize is the fixed size of chunk frames forwarded to the backend
	// during a streaming upload. The inbound HTTP body is re-chunked into
	// frames of at most this size, bounding backend-side message size.
	FrameSize = 64 * 1024 // 64 KiB

	// HTTP headers
	ContentDispositionHeader = "Content-Disposition"
	CacheControlHeader       = "Cache-Control"
)
