package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/handler"
	"github.com/zazer0/neuronpedia/internal/middleware"
)

// RegisterAdmin registers curation endpoints. RequireUser runs first so an
// unauthenticated caller gets 401; an authenticated non-admin gets 403 from
// RequireAdmin.
func RegisterAdmin(e *echo.Echo, r *middleware.Resolver, a *handler.AdminHandler) {
	adm := e.Group("/v1", r.RequireUser(), middleware.RequireAdmin())
	adm.POST("/models", a.CreateModel)
	adm.DELETE("/explanations/:id", a.DeleteExplanation)
}
