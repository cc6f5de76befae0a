package httphandler

import (
	"errors"
	"net/http"

	// Packages
	artifact "github.com/mutablelogic/go-gateway/pkg/artifact"
	relay "github.com/mutablelogic/go-gateway/pkg/relay"
	session "github.com/mutablelogic/go-gateway/pkg/session"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Router is the interface required to register HTTP handlers.
type Router interface {
	RegisterFunc(path string, handler http.HandlerFunc, middleware bool, spec *openapi.PathItem) error
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterHandlers registers all gateway HTTP handlers on the provided router.
func RegisterHandlers(router Router, sessions *session.Manager, downloads *relay.Relay, artifacts *artifact.Cache) error {
	var result error
	register := func(path string, handler http.HandlerFunc, spec *openapi.PathItem) {
		result = errors.Join(result, router.RegisterFunc(path, handler, true, spec))
	}
	register(UploadInitHandler(sessions))
	register(UploadStreamHandler(sessions))
	register(UploadAbortHandler(sessions))
	register(ThumbnailHandler(artifacts))
	register(ObjectHandler(downloads))
	return result
}
