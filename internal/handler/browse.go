// This file implements the public, read-only catalog endpoints. They are
// served through the response cache and apply no identity requirements;
// anonymous browsing is the common case.
package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
)

// BrowseHandler bundles the read-side repositories.
type BrowseHandler struct {
	Models       *repository.ModelRepo
	Neurons      *repository.NeuronRepo
	Explanations *repository.ExplanationRepo
	Comments     *repository.CommentRepo
}

func NewBrowseHandler(m *repository.ModelRepo, n *repository.NeuronRepo, e *repository.ExplanationRepo, cm *repository.CommentRepo) *BrowseHandler {
	return &BrowseHandler{Models: m, Neurons: n, Explanations: e, Comments: cm}
}

// GetModels handles GET /v1/models.
func (h *BrowseHandler) GetModels(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	models, err := h.Models.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"models": models})
}

// GetSources handles GET /v1/models/:modelId/sources.
func (h *BrowseHandler) GetSources(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sources, err := h.Models.ListSources(ctx, c.Param("modelId"))
	if err != nil {
		if err == repository.ErrModelNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sources": sources})
}

type neuronResp struct {
	*repository.Neuron
	Explanations []*repository.Explanation `json:"explanations"`
	Comments     []*repository.Comment     `json:"comments"`
}

// GetNeuron handles GET /v1/neurons/:modelId/:layer/:index. One feature with
// its explanations (most voted first) and comments.
func (h *BrowseHandler) GetNeuron(c echo.Context) error {
	modelID := c.Param("modelId")
	layer := c.Param("layer")
	index, ok := paramIndex(c, "index")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid index"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Neurons.Get(ctx, modelID, layer, index)
	if err != nil {
		if err == repository.ErrNeuronNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "neuron not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	exps, err := h.Explanations.ListForNeuron(ctx, modelID, layer, index)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	comments, err := h.Comments.ListForNeuron(ctx, modelID, layer, index)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, neuronResp{Neuron: n, Explanations: exps, Comments: comments})
}
