package httphandler

import (
	"net/http"
	"strconv"

	// Packages
	artifact "github.com/mutablelogic/go-gateway/pkg/artifact"
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// CONSTANTS

// Renditions are content-addressed by fingerprint, so clients may cache
// aggressively. 30 days, matching the store retention window.
const thumbnailCacheControl = "public, max-age=2592000"

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /object/thumbnail
// GET returns a cached thumbnail rendition, generating it on first request.
func ThumbnailHandler(artifacts *artifact.Cache) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/object/thumbnail", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_ = thumbnailGet(w, r, artifacts)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "Get a thumbnail rendition of an uploaded image",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func thumbnailGet(w http.ResponseWriter, r *http.Request, artifacts *artifact.Cache) error {
	// Read query parameters into request struct
	var req struct {
		Bucket      string `json:"bucket"`
		Key         string `json:"key"`
		Fingerprint string `json:"fingerprint"`
		Variant     string `json:"variant"`
	}
	if err := httprequest.Query(r.URL.Query(), &req); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}
	if req.Variant == "" {
		req.Variant = artifact.DefaultVariants[0].Name
	}

	blob, err := artifacts.GetOrGenerate(r.Context(), req.Fingerprint, req.Bucket, req.Key, req.Variant)
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Return the rendition
	w.Header().Set(types.ContentTypeHeader, "image/jpeg")
	w.Header().Set(types.ContentLengthHeader, strconv.Itoa(len(blob)))
	w.Header().Set(schema.CacheControlHeader, thumbnailCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		return err
	}

	// Return success
	return nil
}
