package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
	queuepub "github.com/zazer0/neuronpedia/internal/service"
)

const maxListNameLen = 128
const maxDescriptionLen = 4096

// ListStore is the slice of the data layer the list endpoints need. Every
// mutation takes the caller id so the ownership predicate rides on the
// statement itself.
type ListStore interface {
	Create(ctx context.Context, userID, name, description string) (*repository.List, error)
	GetByID(ctx context.Context, id string) (*repository.List, error)
	ListByOwner(ctx context.Context, userID string) ([]*repository.List, error)
	DeleteByIDAndOwner(ctx context.Context, id, userID string) error
	AddEntry(ctx context.Context, listID, userID, modelID, layer string, index int64, description string) (*repository.ListEntry, error)
	UpdateEntryDescription(ctx context.Context, entryID, listID, userID, description string) (*repository.ListEntry, error)
}

type ListHandler struct {
	Lists   ListStore
	Publish func(ctx context.Context, ev queue.ActivityEvent) error
}

func NewListHandler(l ListStore) *ListHandler {
	return &ListHandler{Lists: l, Publish: queuepub.PublishActivity}
}

type createListReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /v1/lists. Ownership is fixed here and immutable for
// the life of the list.
func (h *ListHandler) Create(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createListReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if len(req.Name) > maxListNameLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name too long"})
	}
	if len(req.Description) > maxDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	l, err := h.Lists.Create(ctx, id.UserID, req.Name, req.Description)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create list failed"})
	}

	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ActivityEvent{
			Kind:       "list.created",
			UserID:     id.UserID,
			SubjectID:  l.ID,
			Detail:     l.Name,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, l)
}

// Get handles GET /v1/lists/:id. Lists are publicly readable; entry
// descriptions come back exactly as stored.
func (h *ListHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	l, err := h.Lists.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == repository.ErrListNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, l)
}

// Mine handles GET /v1/lists (the caller's lists, without entries).
func (h *ListHandler) Mine(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	lists, err := h.Lists.ListByOwner(ctx, id.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"lists": lists})
}

// Delete handles DELETE /v1/lists/:id. Owner only.
func (h *ListHandler) Delete(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Lists.DeleteByIDAndOwner(ctx, c.Param("id"), id.UserID); err != nil {
		switch err {
		case repository.ErrListNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

type addEntryReq struct {
	featureRef
	Description string `json:"description"`
}

// AddEntry handles POST /v1/lists/:id/entries. Owner only.
func (h *ListHandler) AddEntry(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req addEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateFeatureRef(req.featureRef); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if len(req.Description) > maxDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Lists.AddEntry(ctx, c.Param("id"), id.UserID, req.ModelID, req.Layer, req.Index, req.Description)
	if err != nil {
		switch err {
		case repository.ErrListNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add entry failed"})
		}
	}
	return c.JSON(http.StatusCreated, e)
}

type updateEntryReq struct {
	Description string `json:"description"`
}

// UpdateEntry handles PATCH /v1/lists/:id/entries/:entryId. Owner only.
func (h *ListHandler) UpdateEntry(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Description) > maxDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Lists.UpdateEntryDescription(ctx, c.Param("entryId"), c.Param("id"), id.UserID, req.Description)
	if err != nil {
		switch err {
		case repository.ErrListNotFound, repository.ErrListEntryNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "list entry not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update entry failed"})
		}
	}
	return c.JSON(http.StatusOK, e)
}
