package schema

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	// SSE event names emitted during a streaming upload. Clients should
	// switch on these names (or the "type" field of the payload) to drive
	// progress UIs.

	// UploadInitiatedEvent is sent once, after the backend has acknowledged
	// the upload and assigned a session id.
	UploadInitiatedEvent = "initiated"

	// UploadProgressEvent may be sent any number of times (including zero)
	// while chunks are being committed by the backend.
	UploadProgressEvent = "progress"

	// UploadCompletedEvent is sent exactly once on success, carrying the
	// content fingerprint and final size. It is the last event of the stream.
	UploadCompletedEvent = "completed"

	// UploadErrorEvent is sent exactly once on failure and terminates the
	// stream. An aborted upload emits no error event; the stream simply ends.
	UploadErrorEvent = "error"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// UploadEvent is the unit pushed to the client during an upload. Type is the
// discriminator and matches the SSE event name; the remaining fields are
// populated according to the type.
type UploadEvent struct {
	Type string `json:"type"`

	// Type == UploadInitiatedEvent
	SessionId string `json:"session_id,omitempty"`

	// Type == UploadProgressEvent
	BytesUploaded int64   `json:"bytes_uploaded,omitempty"`
	TotalBytes    int64   `json:"total_bytes,omitempty"`
	Percent       float64 `json:"percent,omitempty"`

	// Type == UploadCompletedEvent
	Fingerprint string `json:"content_fingerprint,omitempty"`
	Size        int64  `json:"size,omitempty"`

	// Type == UploadErrorEvent
	Message string `json:"message,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// InitiatedEvent returns an event carrying the backend-assigned session id.
func InitiatedEvent(sessionId string) UploadEvent {
	return UploadEvent{Type: UploadInitiatedEvent, SessionId: sessionId}
}

// ProgressEvent returns a progress event. Percent is derived from the byte
// counters, clamped to 100 when the declared total is exceeded or unknown.
func ProgressEvent(bytesUploaded, totalBytes int64) UploadEvent {
	var percent float64
	if totalBytes > 0 {
		percent = float64(bytesUploaded) / float64(totalBytes) * 100
		if percent > 100 {
			percent = 100
		}
	}
	return UploadEvent{
		Type:          UploadProgressEvent,
		BytesUploaded: bytesUploaded,
		TotalBytes:    totalBytes,
		Percent:       percent,
	}
}

// CompletedEvent returns the terminal success event.
func CompletedEvent(fingerprint string, size int64) UploadEvent {
	return UploadEvent{Type: UploadCompletedEvent, Fingerprint: fingerprint, Size: size}
}

// ErrorEvent returns the terminal failure event.
func ErrorEvent(message string) UploadEvent {
	return UploadEvent{Type: UploadErrorEvent, Message: message}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Terminal reports whether the event ends the stream.
func (e UploadEvent) Terminal() bool {
	return e.Type == UploadCompletedEvent || e.Type == UploadErrorEvent
}
