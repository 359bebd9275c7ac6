package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
)

type BookmarkHandler struct {
	Bookmarks *repository.BookmarkRepo
}

func NewBookmarkHandler(b *repository.BookmarkRepo) *BookmarkHandler {
	return &BookmarkHandler{Bookmarks: b}
}

type addBookmarkReq struct {
	featureRef
}

// Add handles POST /v1/bookmarks. Re-bookmarking an already bookmarked
// feature returns the existing row, mirroring the vote semantics.
func (h *BookmarkHandler) Add(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req addBookmarkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateFeatureRef(req.featureRef); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Bookmarks.Add(ctx, id.UserID, req.ModelID, req.Layer, req.Index)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add bookmark failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// Mine handles GET /v1/bookmarks.
func (h *BookmarkHandler) Mine(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	bs, err := h.Bookmarks.ListByUser(ctx, id.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarks": bs})
}

// Delete handles DELETE /v1/bookmarks/:id.
func (h *BookmarkHandler) Delete(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Bookmarks.DeleteByIDAndOwner(ctx, c.Param("id"), id.UserID); err != nil {
		switch err {
		case repository.ErrBookmarkNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bookmark not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
