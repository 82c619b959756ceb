package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects book related the api endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.POST("/books", m.public(api.CreateBook))
	router.GET("/books", m.public(api.GetAllBooks))
	router.GET("/books/:id", m.public(api.GetOneBook))
	router.PUT("/books/:id", m.public(api.UpdateBook))
	router.DELETE("/books/:id", m.public(api.DeleteOneBook))
	router.POST("/books/:id/buy", m.public(api.PurchaseBook))
	router.GET("/search", m.public(api.SearchBooks))
	return router
}
