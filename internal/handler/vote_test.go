package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
)

// fakeVoteStore mimics the idempotent-upsert semantics of the real table:
// one row per (user, explanation), re-voting returns the existing row.
type fakeVoteStore struct {
	explanations map[string]bool
	votes        map[string]*repository.Vote
}

func newFakeVoteStore(explanationIDs ...string) *fakeVoteStore {
	f := &fakeVoteStore{explanations: map[string]bool{}, votes: map[string]*repository.Vote{}}
	for _, id := range explanationIDs {
		f.explanations[id] = true
	}
	return f
}

func (f *fakeVoteStore) Vote(_ context.Context, userID, explanationID string) (*repository.Vote, error) {
	if !f.explanations[explanationID] {
		return nil, repository.ErrExplanationNotFound
	}
	k := userID + "/" + explanationID
	if v, ok := f.votes[k]; ok {
		return v, nil
	}
	v := &repository.Vote{ID: "v-" + k, UserID: userID, ExplanationID: explanationID}
	f.votes[k] = v
	return v, nil
}

func (f *fakeVoteStore) Unvote(_ context.Context, userID, explanationID string) error {
	k := userID + "/" + explanationID
	if _, ok := f.votes[k]; !ok {
		return repository.ErrVoteNotFound
	}
	delete(f.votes, k)
	return nil
}

func newVoteHandlerForTest(store VoteStore) (*VoteHandler, *[]queue.ActivityEvent) {
	var events []queue.ActivityEvent
	h := &VoteHandler{
		Votes: store,
		Publish: func(_ context.Context, ev queue.ActivityEvent) error {
			events = append(events, ev)
			return nil
		},
	}
	return h, &events
}

func TestVoteIsIdempotent(t *testing.T) {
	store := newFakeVoteStore("exp-1")
	h, events := newVoteHandlerForTest(store)

	c, rec := newCtx(t, http.MethodPost, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-1")
	require.NoError(t, h.Vote(c))
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()

	c, rec = newCtx(t, http.MethodPost, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-1")
	require.NoError(t, h.Vote(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.String())
	assert.Len(t, store.votes, 1)
	assert.Len(t, *events, 2)
}

func TestVoteUnknownExplanation(t *testing.T) {
	h, events := newVoteHandlerForTest(newFakeVoteStore())

	c, rec := newCtx(t, http.MethodPost, "/v1/explanations/nope/vote", "", "id", "nope")
	asUser(c, "u-1")
	require.NoError(t, h.Vote(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, *events)
}

func TestUnvoteRemovesVote(t *testing.T) {
	store := newFakeVoteStore("exp-1")
	h, _ := newVoteHandlerForTest(store)

	c, _ := newCtx(t, http.MethodPost, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-1")
	require.NoError(t, h.Vote(c))

	c, rec := newCtx(t, http.MethodDelete, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-1")
	require.NoError(t, h.Unvote(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.votes)
}

func TestUnvoteWithoutVoteIs404(t *testing.T) {
	h, events := newVoteHandlerForTest(newFakeVoteStore("exp-1"))

	c, rec := newCtx(t, http.MethodDelete, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-1")
	require.NoError(t, h.Unvote(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, *events)
}

func TestVotesAreScopedPerUser(t *testing.T) {
	store := newFakeVoteStore("exp-1")
	h, _ := newVoteHandlerForTest(store)

	for _, uid := range []string{"u-1", "u-2"} {
		c, rec := newCtx(t, http.MethodPost, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
		asUser(c, uid)
		require.NoError(t, h.Vote(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, store.votes, 2)

	// u-2 removing their vote leaves u-1's in place.
	c, rec := newCtx(t, http.MethodDelete, "/v1/explanations/exp-1/vote", "", "id", "exp-1")
	asUser(c, "u-2")
	require.NoError(t, h.Unvote(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, store.votes, 1)
}
