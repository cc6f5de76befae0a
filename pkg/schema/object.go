package schema

import (
	// Packages
	"github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// InitUploadRequest is the body of POST /upload/init.
type InitUploadRequest struct {
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length"`
}

// InitUploadResponse carries the backend-assigned session id.
type InitUploadResponse struct {
	SessionId string `json:"session_id"`
}

// DownloadMeta is object metadata observed on the download stream. It may be
// absent when the backend emits the first content chunk before any metadata.
type DownloadMeta struct {
	Bucket        string `json:"bucket,omitempty"`
	Key           string `json:"key,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	ETag          string `json:"etag,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
}

// UploadResult is the backend's final word on a completed upload.
type UploadResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag"`
	Size   int64  `json:"size"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r InitUploadRequest) String() string {
	return types.Stringify(r)
}

func (m DownloadMeta) String() string {
	return types.Stringify(m)
}

func (r UploadResult) String() string {
	return types.Stringify(r)
}
