package main

import (
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/jeamon/bookstore-api/docs"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes enforces the api routes. The internal operations
// endpoints are only exposed when enabled from the configuration.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = api.NotFound()
	router = api.SetupBookRoutes(router, m)
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	if api.config.OpsEndpointsEnable {
		router = api.SetupOpsRoutes(router, m)
	}
	return router
}
