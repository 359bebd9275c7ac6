package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
)

// Comment text bounds, enforced before any store call.
const (
	minCommentLen = 3
	maxCommentLen = 1024
)

// CommentStore is the slice of the data layer the comment endpoints need.
type CommentStore interface {
	Create(ctx context.Context, userID, modelID, layer string, index int64, text string) (*repository.Comment, error)
	DeleteByIDAndOwner(ctx context.Context, id, userID string) error
}

type CommentHandler struct {
	Comments CommentStore
}

func NewCommentHandler(cm CommentStore) *CommentHandler {
	return &CommentHandler{Comments: cm}
}

type createCommentReq struct {
	featureRef
	Text string `json:"text"`
}

// Create handles POST /v1/comments. Text is stored and returned verbatim;
// only the length bounds are checked, no trimming or transformation.
func (h *CommentHandler) Create(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createCommentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateFeatureRef(req.featureRef); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if len(req.Text) < minCommentLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text too short"})
	}
	if len(req.Text) > maxCommentLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cm, err := h.Comments.Create(ctx, id.UserID, req.ModelID, req.Layer, req.Index, req.Text)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create comment failed"})
	}
	return c.JSON(http.StatusCreated, cm)
}

// Delete handles DELETE /v1/comments/:id. 404 when the comment is missing,
// 403 when it belongs to someone else; existence and ownership are
// independent facts and never conflated.
func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Comments.DeleteByIDAndOwner(ctx, c.Param("id"), id.UserID); err != nil {
		switch err {
		case repository.ErrCommentNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
