// This file implements the attribution-graph endpoints, including signed-PUT
// issuance: clients upload graph JSON blobs straight to object storage, and
// this service only authorizes the upload. Authorization is limited per IP
// by counting the append-only audit log over a trailing 24-hour window at
// request time.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
	queuepub "github.com/zazer0/neuronpedia/internal/service"
	"github.com/zazer0/neuronpedia/internal/storage"
)

// Signed-PUT policy. Window and limit are measured against wall clock at
// request time, not a calendar day.
const (
	putWindow       = 24 * time.Hour
	putLimitPerIP   = 100
	minUploadBytes  = 1024
	maxUploadBytes  = 100 * 1024 * 1024
	maxFilenameLen  = 128
	maxSubgraphName = 128
)

var filenameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// GraphStore is the slice of the data layer the graph endpoints need.
type GraphStore interface {
	GetBySlug(ctx context.Context, modelID, slug string) (*repository.GraphMetadata, error)
	CreateSubgraph(ctx context.Context, graphID, userID, name string, data json.RawMessage) (*repository.Subgraph, error)
	OverwriteSubgraph(ctx context.Context, id, userID, name string, data json.RawMessage) (*repository.Subgraph, error)
	DeleteSubgraphByIDAndOwner(ctx context.Context, id, userID string) error
	ListSubgraphs(ctx context.Context, graphID string) ([]*repository.Subgraph, error)
	CountRecentPutRequests(ctx context.Context, ip string, since time.Time) (int, error)
	RecordPutRequest(ctx context.Context, ip, filename, url, userID string) error
}

// Presigner mints time-boxed upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
}

type GraphHandler struct {
	Graphs  GraphStore
	Signer  Presigner
	Publish func(ctx context.Context, ev queue.ActivityEvent) error
}

func NewGraphHandler(g GraphStore, s Presigner) *GraphHandler {
	return &GraphHandler{Graphs: g, Signer: s, Publish: queuepub.PublishActivity}
}

// Get handles GET /v1/graphs/:modelId/:slug.
func (h *GraphHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	g, err := h.Graphs.GetBySlug(ctx, c.Param("modelId"), c.Param("slug"))
	if err != nil {
		if err == repository.ErrGraphNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "graph not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	subgraphs, err := h.Graphs.ListSubgraphs(ctx, g.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"graph": g, "subgraphs": subgraphs})
}

type saveSubgraphReq struct {
	Name        string          `json:"name"`
	Data        json.RawMessage `json:"data"`
	OverwriteID string          `json:"overwriteId"`
}

// SaveSubgraph handles POST /v1/graphs/:graphId/subgraphs. Without an
// overwriteId a new subgraph is created; with one, the identified subgraph
// is replaced. The overwrite is a single conditional update carrying the
// owner predicate, so two racing requests cannot let a non-owner clobber
// someone else's subgraph.
func (h *GraphHandler) SaveSubgraph(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req saveSubgraphReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if len(req.Name) > maxSubgraphName {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name too long"})
	}
	if len(req.Data) == 0 || !json.Valid(req.Data) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "data must be valid JSON"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	var sg *repository.Subgraph
	if req.OverwriteID != "" {
		sg, err = h.Graphs.OverwriteSubgraph(ctx, req.OverwriteID, id.UserID, req.Name, req.Data)
	} else {
		sg, err = h.Graphs.CreateSubgraph(ctx, c.Param("graphId"), id.UserID, req.Name, req.Data)
	}
	if err != nil {
		switch err {
		case repository.ErrGraphNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "graph not found"})
		case repository.ErrSubgraphNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subgraph not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save subgraph failed"})
		}
	}
	status := http.StatusCreated
	if req.OverwriteID != "" {
		status = http.StatusOK
	}
	return c.JSON(status, sg)
}

// DeleteSubgraph handles DELETE /v1/subgraphs/:id. Owner only; 404 and 403
// stay distinct.
func (h *GraphHandler) DeleteSubgraph(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Graphs.DeleteSubgraphByIDAndOwner(ctx, c.Param("id"), id.UserID); err != nil {
		switch err {
		case repository.ErrSubgraphNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subgraph not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

type signedPutReq struct {
	Filename      string `json:"filename"`
	ContentLength int64  `json:"contentLength"`
}

// SignedPut handles POST /v1/graphs/signed-put. The flow is fixed: validate
// the body, require an originating IP (fail closed without one), count the
// caller IP's audit rows inside the trailing window, refuse with 429 at the
// limit, and only then sign a URL and append the audit row.
func (h *GraphHandler) SignedPut(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req signedPutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Filename = strings.TrimSpace(req.Filename)
	if req.Filename == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filename is required"})
	}
	// Reject anything that is not a bare filename; the key namespace is
	// derived from it and must stay inside the caller's prefix.
	if req.Filename != path.Base(req.Filename) || !filenameRe.MatchString(req.Filename) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid filename"})
	}
	if len(req.Filename) > maxFilenameLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filename too long"})
	}
	if req.ContentLength < minUploadBytes || req.ContentLength > maxUploadBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contentLength out of range"})
	}

	ip := c.RealIP()
	if ip == "" {
		// No IP means the rate limit cannot be attributed; fail closed
		// rather than treating the caller as unlimited.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client ip unavailable"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	count, err := h.Graphs.CountRecentPutRequests(ctx, ip, time.Now().UTC().Add(-putWindow))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rate check failed"})
	}
	if count >= putLimitPerIP {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "upload limit reached, try again later"})
	}

	key := storage.GraphKey(id.UserID, req.Filename)
	url, err := h.Signer.PresignPut(ctx, key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign upload failed"})
	}
	if err := h.Graphs.RecordPutRequest(ctx, ip, req.Filename, url, id.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record upload failed"})
	}

	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ActivityEvent{
			Kind:       "graph.upload_authorized",
			UserID:     id.UserID,
			SubjectID:  req.Filename,
			Detail:     key,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url, "key": key, "expiresIn": int(storage.PutExpiry.Seconds())})
}
