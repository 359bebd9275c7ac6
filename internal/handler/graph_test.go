package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
)

type auditRow struct {
	ip, filename, url, userID string
	at                        time.Time
}

type fakeGraphStore struct {
	graphs    map[string]*repository.GraphMetadata
	subgraphs map[string]*repository.Subgraph
	audit     []auditRow
	now       time.Time
	nextID    int
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		graphs:    map[string]*repository.GraphMetadata{},
		subgraphs: map[string]*repository.Subgraph{},
		now:       time.Now().UTC(),
	}
}

func (f *fakeGraphStore) id() string {
	f.nextID++
	return fmt.Sprintf("sg-%d", f.nextID)
}

func (f *fakeGraphStore) GetBySlug(_ context.Context, modelID, slug string) (*repository.GraphMetadata, error) {
	g, ok := f.graphs[modelID+"/"+slug]
	if !ok {
		return nil, repository.ErrGraphNotFound
	}
	return g, nil
}

func (f *fakeGraphStore) CreateSubgraph(_ context.Context, graphID, userID, name string, data json.RawMessage) (*repository.Subgraph, error) {
	sg := &repository.Subgraph{ID: f.id(), GraphID: graphID, UserID: userID, Name: name, Data: data}
	f.subgraphs[sg.ID] = sg
	return sg, nil
}

func (f *fakeGraphStore) OverwriteSubgraph(_ context.Context, id, userID, name string, data json.RawMessage) (*repository.Subgraph, error) {
	sg, ok := f.subgraphs[id]
	if !ok {
		return nil, repository.ErrSubgraphNotFound
	}
	if sg.UserID != userID {
		return nil, repository.ErrForbidden
	}
	sg.Name, sg.Data = name, data
	return sg, nil
}

func (f *fakeGraphStore) DeleteSubgraphByIDAndOwner(_ context.Context, id, userID string) error {
	sg, ok := f.subgraphs[id]
	if !ok {
		return repository.ErrSubgraphNotFound
	}
	if sg.UserID != userID {
		return repository.ErrForbidden
	}
	delete(f.subgraphs, id)
	return nil
}

func (f *fakeGraphStore) ListSubgraphs(_ context.Context, graphID string) ([]*repository.Subgraph, error) {
	var out []*repository.Subgraph
	for _, sg := range f.subgraphs {
		if sg.GraphID == graphID {
			out = append(out, sg)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) CountRecentPutRequests(_ context.Context, ip string, since time.Time) (int, error) {
	n := 0
	for _, r := range f.audit {
		if r.ip == ip && !r.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeGraphStore) RecordPutRequest(_ context.Context, ip, filename, url, userID string) error {
	f.audit = append(f.audit, auditRow{ip: ip, filename: filename, url: url, userID: userID, at: f.now})
	return nil
}

type fakePresigner struct {
	err   error
	calls int
}

func (f *fakePresigner) PresignPut(_ context.Context, key string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example/" + key + "?sig=abc", nil
}

func newGraphHandlerForTest(store GraphStore, signer Presigner) *GraphHandler {
	return &GraphHandler{
		Graphs:  store,
		Signer:  signer,
		Publish: func(context.Context, queue.ActivityEvent) error { return nil },
	}
}

func signedPutBody(filename string, length int64) string {
	b, _ := json.Marshal(map[string]interface{}{"filename": filename, "contentLength": length})
	return string(b)
}

func TestSignedPutHappyPath(t *testing.T) {
	store := newFakeGraphStore()
	h := newGraphHandlerForTest(store, &fakePresigner{})

	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("graph.json", 2048))
	asUser(c, "u-1")
	require.NoError(t, h.SignedPut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-graphs/u-1/graph.json", resp.Key)
	assert.Contains(t, resp.URL, resp.Key)
	require.Len(t, store.audit, 1)
	assert.Equal(t, "u-1", store.audit[0].userID)
	assert.NotEmpty(t, store.audit[0].ip)
}

func TestSignedPutContentLengthBounds(t *testing.T) {
	cases := []struct {
		name   string
		length int64
		want   int
	}{
		{"below minimum", 1023, http.StatusBadRequest},
		{"at minimum", 1024, http.StatusOK},
		{"at maximum", 100 * 1024 * 1024, http.StatusOK},
		{"above maximum", 100*1024*1024 + 1, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newGraphHandlerForTest(newFakeGraphStore(), &fakePresigner{})
			c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", tc.length))
			asUser(c, "u-1")
			require.NoError(t, h.SignedPut(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestSignedPutRejectsPathTraversal(t *testing.T) {
	for _, bad := range []string{"../secrets.json", "a/b.json", "", "sp ace.json"} {
		h := newGraphHandlerForTest(newFakeGraphStore(), &fakePresigner{})
		c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody(bad, 2048))
		asUser(c, "u-1")
		require.NoError(t, h.SignedPut(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "filename %q", bad)
	}
}

func TestSignedPutFailsClosedWithoutClientIP(t *testing.T) {
	store := newFakeGraphStore()
	signer := &fakePresigner{}
	h := newGraphHandlerForTest(store, signer)

	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	c.Request().RemoteAddr = ""
	require.NoError(t, h.SignedPut(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, signer.calls)
	assert.Empty(t, store.audit)
}

func TestSignedPutLimitIsPerIPOver24h(t *testing.T) {
	store := newFakeGraphStore()
	signer := &fakePresigner{}
	h := newGraphHandlerForTest(store, signer)

	// httptest requests share one RemoteAddr, so these all count against
	// the same IP. Fill the window to one below the limit.
	for i := 0; i < 99; i++ {
		store.audit = append(store.audit, auditRow{ip: "192.0.2.1", at: store.now.Add(-time.Hour)})
	}

	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	require.NoError(t, h.SignedPut(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.audit, 100)

	// The hundredth recorded request trips the limit.
	c, rec = newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	require.NoError(t, h.SignedPut(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, store.audit, 100)

	// A different IP is unaffected by the saturated one.
	c, rec = newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	c.Request().RemoteAddr = "198.51.100.7:4444"
	require.NoError(t, h.SignedPut(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Rows older than the window do not count.
	store.audit = store.audit[:0]
	for i := 0; i < 100; i++ {
		store.audit = append(store.audit, auditRow{ip: "192.0.2.1", at: store.now.Add(-25 * time.Hour)})
	}
	c, rec = newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	require.NoError(t, h.SignedPut(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignedPutSigningFailureIsGeneric500(t *testing.T) {
	store := newFakeGraphStore()
	h := newGraphHandlerForTest(store, &fakePresigner{err: assert.AnError})

	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/signed-put", signedPutBody("g.json", 2048))
	asUser(c, "u-1")
	require.NoError(t, h.SignedPut(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	assert.Empty(t, store.audit)
}

func TestSaveSubgraphCreateAndOverwrite(t *testing.T) {
	store := newFakeGraphStore()
	h := newGraphHandlerForTest(store, &fakePresigner{})

	body := `{"name":"pruned view","data":{"nodes":[1,2]}}`
	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/g-1/subgraphs", body, "graphId", "g-1")
	asUser(c, "u-1")
	require.NoError(t, h.SaveSubgraph(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created repository.Subgraph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	over := fmt.Sprintf(`{"name":"pruned view v2","data":{"nodes":[1]},"overwriteId":%q}`, created.ID)
	c, rec = newCtx(t, http.MethodPost, "/v1/graphs/g-1/subgraphs", over, "graphId", "g-1")
	asUser(c, "u-1")
	require.NoError(t, h.SaveSubgraph(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.subgraphs, 1)
	assert.Equal(t, "pruned view v2", store.subgraphs[created.ID].Name)

	// Overwriting someone else's subgraph is forbidden.
	c, rec = newCtx(t, http.MethodPost, "/v1/graphs/g-1/subgraphs", over, "graphId", "g-1")
	asUser(c, "u-2")
	require.NoError(t, h.SaveSubgraph(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSaveSubgraphRequiresData(t *testing.T) {
	h := newGraphHandlerForTest(newFakeGraphStore(), &fakePresigner{})
	c, rec := newCtx(t, http.MethodPost, "/v1/graphs/g-1/subgraphs",
		`{"name":"no data"}`, "graphId", "g-1")
	asUser(c, "u-1")
	require.NoError(t, h.SaveSubgraph(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSubgraphOwnership(t *testing.T) {
	store := newFakeGraphStore()
	h := newGraphHandlerForTest(store, &fakePresigner{})
	sg, err := store.CreateSubgraph(context.Background(), "g-1", "u-1", "view", json.RawMessage(`{}`))
	require.NoError(t, err)

	c, rec := newCtx(t, http.MethodDelete, "/v1/subgraphs/"+sg.ID, "", "id", sg.ID)
	asUser(c, "u-2")
	require.NoError(t, h.DeleteSubgraph(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newCtx(t, http.MethodDelete, "/v1/subgraphs/"+sg.ID, "", "id", sg.ID)
	asUser(c, "u-1")
	require.NoError(t, h.DeleteSubgraph(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newCtx(t, http.MethodDelete, "/v1/subgraphs/"+sg.ID, "", "id", sg.ID)
	asUser(c, "u-1")
	require.NoError(t, h.DeleteSubgraph(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
