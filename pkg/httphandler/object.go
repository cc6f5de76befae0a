package httphandler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-gateway/pkg/relay"
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /object/{bucket}/{key...}
// GET streams the object body from the backend as an attachment download.
func ObjectHandler(downloads *relay.Relay) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/object/{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_ = objectGet(w, r, downloads)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "Download an object",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func objectGet(w http.ResponseWriter, r *http.Request, downloads *relay.Relay) error {
	bucket := r.PathValue("bucket")
	key := strings.TrimPrefix(types.NormalisePath(r.PathValue("key")), "/")

	meta, body, err := downloads.Open(r.Context(), bucket, key)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	defer body.Close()

	// Backends that omit the metadata frame leave the content type to a
	// body sniff of the first 512 bytes.
	buffer := make([]byte, 512)
	n, err := io.ReadFull(body, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return httpresponse.Error(w, err)
	}

	var stored string
	if meta != nil {
		stored = meta.ContentType
	}
	contentType := resolveContentType(stored, http.DetectContentType(buffer[:n]), filepath.Ext(key))
	writeDownloadHeaders(w, meta, key, contentType)
	w.WriteHeader(http.StatusOK)

	if n > 0 {
		if _, err := w.Write(buffer[:n]); err != nil {
			return err
		}
	}

	// The status is committed; a mid-stream failure can only truncate the
	// response, which the declared Content-Length lets clients detect.
	if _, err := io.Copy(w, body); err != nil {
		return err
	}

	// Return success
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - HELPER FUNCTIONS

// resolveContentType returns the best content-type for an object, preferring
// backend metadata over sniffed body content over file-extension over binary
// fallback.
func resolveContentType(stored, sniffed, ext string) string {
	if stored != "" && stored != types.ContentTypeBinary {
		return stored
	}
	if sniffed != "" && sniffed != types.ContentTypeBinary {
		return sniffed
	}
	if extType := mime.TypeByExtension(ext); extType != "" {
		return extType
	}
	if stored != "" {
		return stored
	}
	return types.ContentTypeBinary
}

// writeDownloadHeaders sets Content-Type, Content-Disposition and, when the
// backend declared one, Content-Length on the response.
func writeDownloadHeaders(w http.ResponseWriter, meta *schema.DownloadMeta, key, contentType string) {
	w.Header().Set(types.ContentTypeHeader, contentType)
	if filename := filepath.Base(key); filename != "" && filename != "." && filename != "/" {
		if cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); cd != "" {
			w.Header().Set(schema.ContentDispositionHeader, cd)
		}
	}
	if meta == nil {
		return
	}
	if meta.ContentLength > 0 {
		w.Header().Set(types.ContentLengthHeader, strconv.FormatInt(meta.ContentLength, 10))
	}
	if meta.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(meta.ETag))
	}
	// The backend reports modification time as RFC 3339
	if t, err := time.Parse(time.RFC3339, meta.LastModified); err == nil {
		w.Header().Set("Last-Modified", t.UTC().Format(http.TimeFormat))
	}
}
