package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/repository"
)

type fakeCommentStore struct {
	next     int
	comments map[string]*repository.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: map[string]*repository.Comment{}}
}

func (f *fakeCommentStore) Create(_ context.Context, userID, modelID, layer string, index int64, text string) (*repository.Comment, error) {
	f.next++
	cm := &repository.Comment{ID: fmt.Sprintf("c-%d", f.next), UserID: userID, ModelID: modelID, Layer: layer, Index: index, Text: text}
	f.comments[cm.ID] = cm
	return cm, nil
}

func (f *fakeCommentStore) DeleteByIDAndOwner(_ context.Context, id, userID string) error {
	cm, ok := f.comments[id]
	if !ok {
		return repository.ErrCommentNotFound
	}
	if cm.UserID != userID {
		return repository.ErrForbidden
	}
	delete(f.comments, id)
	return nil
}

func commentBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"modelId": "gpt2-small", "layer": "6-res-jb", "index": 14057, "text": text,
	})
	return string(b)
}

func TestCreateCommentLengthBounds(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"below minimum", "hi", http.StatusBadRequest},
		{"at minimum", "abc", http.StatusCreated},
		{"at maximum", strings.Repeat("x", 1024), http.StatusCreated},
		{"above maximum", strings.Repeat("x", 1025), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewCommentHandler(newFakeCommentStore())
			c, rec := newCtx(t, http.MethodPost, "/v1/comments", commentBody(tc.text))
			asUser(c, "u-1")
			require.NoError(t, h.Create(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCreateCommentStoresTextVerbatim(t *testing.T) {
	store := newFakeCommentStore()
	h := NewCommentHandler(store)

	// Leading and trailing whitespace count toward length and survive storage.
	text := "  spaced out  "
	c, rec := newCtx(t, http.MethodPost, "/v1/comments", commentBody(text))
	asUser(c, "u-1")
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var got repository.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, text, got.Text)
}

func TestCreateCommentRejectsBadFeatureRef(t *testing.T) {
	h := NewCommentHandler(newFakeCommentStore())
	c, rec := newCtx(t, http.MethodPost, "/v1/comments",
		`{"modelId":"","layer":"6-res-jb","index":1,"text":"hello"}`)
	asUser(c, "u-1")
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCommentWithoutIdentityNeverReachesStore(t *testing.T) {
	store := newFakeCommentStore()
	h := NewCommentHandler(store)

	// No identity in context: the handler must stop at the 401 and the
	// store must not see a write for an empty user id.
	c, rec := newCtx(t, http.MethodPost, "/v1/comments", commentBody("a fine comment"))
	err := h.Create(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.comments)
}

func TestDeleteCommentOwnership(t *testing.T) {
	store := newFakeCommentStore()
	h := NewCommentHandler(store)

	c, rec := newCtx(t, http.MethodPost, "/v1/comments", commentBody("a fine comment"))
	asUser(c, "u-1")
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created repository.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Someone else's delete is forbidden and the comment survives.
	c, rec = newCtx(t, http.MethodDelete, "/v1/comments/"+created.ID, "", "id", created.ID)
	asUser(c, "u-2")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, store.comments, created.ID)

	// The owner's delete succeeds.
	c, rec = newCtx(t, http.MethodDelete, "/v1/comments/"+created.ID, "", "id", created.ID)
	asUser(c, "u-1")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting a missing comment is 404, not 403.
	c, rec = newCtx(t, http.MethodDelete, "/v1/comments/zzz", "", "id", "zzz")
	asUser(c, "u-1")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
