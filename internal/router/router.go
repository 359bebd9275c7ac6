// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/handler"
	"github.com/zazer0/neuronpedia/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers to
// verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /v1/auth; endpoints that need a signed-in caller
// take the resolver's RequireUser middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, r *middleware.Resolver) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", r.RequireUser())
	auth.GET("/me", a.Me)
	auth.POST("/keys", a.CreateAPIKey)
}

// RegisterPublic registers the unauthenticated browse and search routes.
// Identity is resolved by the server-wide OptionalUser middleware, so
// responses can include caller-specific fields, but nothing here rejects a
// guest. The cache middleware, when non-nil, fronts the read-heavy catalog
// routes.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler, ex *handler.ExplanationHandler, g *handler.GraphHandler, cache echo.MiddlewareFunc) {
	var mws []echo.MiddlewareFunc
	if cache != nil {
		mws = append(mws, cache)
	}
	pub := e.Group("/v1", mws...)
	pub.GET("/models", b.GetModels)
	pub.GET("/models/:modelId/sources", b.GetSources)
	pub.GET("/neurons/:modelId/:layer/:index", b.GetNeuron)
	pub.GET("/search/explanations", ex.Search)
	pub.GET("/graphs/:modelId/:slug", g.Get)
}
