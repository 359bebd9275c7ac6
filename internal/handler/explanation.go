package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
)

// Explanation text bounds. The lower bound only rejects empty/whitespace
// submissions; the upper bound matches the column size.
const maxExplanationLen = 4096

type ExplanationHandler struct {
	Explanations *repository.ExplanationRepo
	Neurons      *repository.NeuronRepo
}

func NewExplanationHandler(e *repository.ExplanationRepo, n *repository.NeuronRepo) *ExplanationHandler {
	return &ExplanationHandler{Explanations: e, Neurons: n}
}

type createExplanationReq struct {
	featureRef
	Text string `json:"text"`
}

// Create handles POST /v1/explanations.
func (h *ExplanationHandler) Create(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createExplanationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateFeatureRef(req.featureRef); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text is required"})
	}
	if len(req.Text) > maxExplanationLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ok, err := h.Neurons.Exists(ctx, req.ModelID, req.Layer, req.Index)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "neuron not found"})
	}

	exp, err := h.Explanations.Create(ctx, req.ModelID, req.Layer, req.Index, req.Text, id.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create explanation failed"})
	}
	return c.JSON(http.StatusCreated, exp)
}

// Search handles GET /v1/search/explanations?q=&modelId=&page=&perPage=.
func (h *ExplanationHandler) Search(c echo.Context) error {
	q := repository.SearchQuery{
		Text:    strings.TrimSpace(c.QueryParam("q")),
		ModelID: strings.TrimSpace(c.QueryParam("modelId")),
		Page:    1,
		PerPage: 20,
	}
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		q.Page = p
	}
	if pp, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && pp > 0 && pp <= 100 {
		q.PerPage = pp
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	results, total, err := h.Explanations.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"results": results,
		"total":   total,
		"page":    q.Page,
	})
}
