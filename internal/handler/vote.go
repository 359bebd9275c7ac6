package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
	queuepub "github.com/zazer0/neuronpedia/internal/service"
)

// VoteStore is the slice of the data layer the vote endpoints need. The
// narrow interface keeps the two-state vote machine testable with a fake.
type VoteStore interface {
	Vote(ctx context.Context, userID, explanationID string) (*repository.Vote, error)
	Unvote(ctx context.Context, userID, explanationID string) error
}

type VoteHandler struct {
	Votes VoteStore
	// Publish records activity out of band; failures are logged by the
	// publisher and never fail the request.
	Publish func(ctx context.Context, ev queue.ActivityEvent) error
}

func NewVoteHandler(v VoteStore) *VoteHandler {
	return &VoteHandler{Votes: v, Publish: queuepub.PublishActivity}
}

// Vote handles POST /v1/explanations/:id/vote. Voting is idempotent: a
// second vote by the same caller returns the existing record with 200
// instead of erroring or duplicating.
func (h *VoteHandler) Vote(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	explanationID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Votes.Vote(ctx, id.UserID, explanationID)
	if err != nil {
		if err == repository.ErrExplanationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "explanation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vote failed"})
	}

	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ActivityEvent{
			Kind:       "vote.cast",
			UserID:     id.UserID,
			SubjectID:  explanationID,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, v)
}

// Unvote handles DELETE /v1/explanations/:id/vote. Unlike Vote this is
// strict: removing a vote that does not exist is 404, never a silent
// success.
func (h *VoteHandler) Unvote(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	explanationID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Votes.Unvote(ctx, id.UserID, explanationID); err != nil {
		if err == repository.ErrVoteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vote not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unvote failed"})
	}

	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ActivityEvent{
			Kind:       "vote.removed",
			UserID:     id.UserID,
			SubjectID:  explanationID,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.NoContent(http.StatusNoContent)
}
