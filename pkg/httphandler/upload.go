package httphandler

import (
	"net/http"

	// Packages
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	session "github.com/mutablelogic/go-gateway/pkg/session"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /upload/init
// POST opens an upload session with the backend and returns its id.
func UploadInitHandler(sessions *session.Manager) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/upload/init", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				_ = uploadInit(w, r, sessions)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Post: &openapi.Operation{
				Description: "Open an upload session",
			},
		})
}

// Path: /upload/{session}/stream
// POST supplies the raw file body and streams upload events back as
// Server-Sent Events.
func UploadStreamHandler(sessions *session.Manager) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/upload/{session}/stream", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				_ = uploadStream(w, r, sessions)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Post: &openapi.Operation{
				Description: "Stream a file body into an open session, receiving progress as Server-Sent Events",
			},
		})
}

// Path: /upload/{session}/abort
// POST cancels an open session and releases any partial state at the backend.
func UploadAbortHandler(sessions *session.Manager) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/upload/{session}/abort", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				_ = uploadAbort(w, r, sessions)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Post: &openapi.Operation{
				Description: "Abort an open upload session",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func uploadInit(w http.ResponseWriter, r *http.Request, sessions *session.Manager) error {
	// Read request
	var req schema.InitUploadRequest
	if err := httprequest.Read(r, &req); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}

	// Open the session
	id, err := sessions.Init(r.Context(), req)
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Return success
	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), schema.InitUploadResponse{SessionId: id})
}

func uploadStream(w http.ResponseWriter, r *http.Request, sessions *session.Manager) error {
	events, err := sessions.Stream(r.Context(), r.PathValue("session"), r.Body)
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Open the SSE stream — this commits 200 OK; failures from here on are
	// reported as error events, not HTTP statuses.
	stream := httpresponse.NewTextStream(w)
	for event := range events {
		stream.Write(event.Type, event)
	}
	return stream.Close()
}

func uploadAbort(w http.ResponseWriter, r *http.Request, sessions *session.Manager) error {
	if err := sessions.Abort(r.Context(), r.PathValue("session")); err != nil {
		return httpresponse.Error(w, err)
	}

	// Return success
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), struct{}{})
}
