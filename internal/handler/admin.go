// This file implements admin-only catalog management. The routes are wired
// behind RequireUser + RequireAdmin, so by the time a handler runs the
// caller is known to be an administrator; non-admins were already refused
// with 403 at the guard.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
)

type AdminHandler struct {
	Models       *repository.ModelRepo
	Explanations *repository.ExplanationRepo
}

func NewAdminHandler(m *repository.ModelRepo, e *repository.ExplanationRepo) *AdminHandler {
	return &AdminHandler{Models: m, Explanations: e}
}

type createModelReq struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Layers      int    `json:"layers"`
}

// CreateModel handles POST /v1/models.
func (h *AdminHandler) CreateModel(c echo.Context) error {
	var req createModelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ID = strings.TrimSpace(req.ID)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.ID == "" || req.DisplayName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id/displayName required"})
	}
	if !layerRe.MatchString(req.ID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id contains invalid characters"})
	}
	if req.Layers <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "layers must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m := &repository.Model{ID: req.ID, DisplayName: req.DisplayName, Layers: req.Layers}
	if err := h.Models.Create(ctx, m); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "model already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create model failed"})
	}
	return c.JSON(http.StatusCreated, m)
}

// DeleteExplanation handles DELETE /v1/explanations/:id (moderation).
func (h *AdminHandler) DeleteExplanation(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Explanations.Delete(ctx, c.Param("id")); err != nil {
		if err == repository.ErrExplanationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "explanation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
