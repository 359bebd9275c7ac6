package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/repository"
	"github.com/zazer0/neuronpedia/internal/utils"
)

const testSecret = "test-secret-1234567890"

type fakeKeyStore struct{ byHash map[string]string }

func (f fakeKeyStore) UserIDForAPIKey(_ context.Context, keyHash string) (string, error) {
	if id, ok := f.byHash[keyHash]; ok {
		return id, nil
	}
	return "", repository.ErrUserNotFound
}

type fakeUserStore struct{ users map[string]repository.User }

func (f fakeUserStore) GetByID(_ context.Context, id string) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func newResolver() *Resolver {
	rawKey := "np-deadbeef"
	return &Resolver{
		Secret: testSecret,
		Keys:   fakeKeyStore{byHash: map[string]string{utils.HashAPIKey(rawKey): "u-bot"}},
		Users: fakeUserStore{users: map[string]repository.User{
			"u-bot": {ID: "u-bot", Name: "crawler", Bot: true},
		}},
	}
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, decorate func(*http.Request)) (*httptest.ResponseRecorder, Identity, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Identity
	var hasIdentity bool
	handler := mw(func(c echo.Context) error {
		got, hasIdentity = CurrentIdentity(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, got, hasIdentity
}

func bearer(t *testing.T, secret, userID, name string, admin bool) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, name, admin, false, 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	rec, _, hasIdentity := doRequest(t, newResolver().RequireUser(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hasIdentity)
}

func TestRequireUserAcceptsValidBearer(t *testing.T) {
	r := newResolver()
	rec, id, hasIdentity := doRequest(t, r.RequireUser(), func(req *http.Request) {
		req.Header.Set("Authorization", bearer(t, testSecret, "u-1", "alice", false))
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, hasIdentity)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "alice", id.Name)
	assert.False(t, id.Admin)
	assert.False(t, id.ViaAPIKey)
}

func TestRequireUserRejectsForgedToken(t *testing.T) {
	r := newResolver()
	rec, _, hasIdentity := doRequest(t, r.RequireUser(), func(req *http.Request) {
		req.Header.Set("Authorization", bearer(t, "some-other-secret", "u-1", "alice", true))
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hasIdentity)
}

func TestRequireUserResolvesAPIKey(t *testing.T) {
	r := newResolver()
	rec, id, hasIdentity := doRequest(t, r.RequireUser(), func(req *http.Request) {
		req.Header.Set("X-Api-Key", "np-deadbeef")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, hasIdentity)
	assert.Equal(t, "u-bot", id.UserID)
	assert.True(t, id.Bot)
	assert.True(t, id.ViaAPIKey)
}

func TestRequireUserRejectsUnknownAPIKey(t *testing.T) {
	rec, _, hasIdentity := doRequest(t, newResolver().RequireUser(), func(req *http.Request) {
		req.Header.Set("X-Api-Key", "np-0000")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hasIdentity)
}

func TestOptionalUserNeverRejects(t *testing.T) {
	r := newResolver()

	rec, _, hasIdentity := doRequest(t, r.OptionalUser(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hasIdentity) // anonymous: no identity set

	rec, id, hasIdentity := doRequest(t, r.OptionalUser(), func(req *http.Request) {
		req.Header.Set("Authorization", bearer(t, testSecret, "u-1", "alice", false))
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasIdentity)
	assert.Equal(t, "u-1", id.UserID)

	// A garbage credential resolves to anonymous rather than an error.
	rec, _, hasIdentity = doRequest(t, r.OptionalUser(), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hasIdentity)
}

func TestRequireAdmin(t *testing.T) {
	r := newResolver()
	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		return r.RequireUser()(RequireAdmin()(next))
	}

	// Authenticated non-admin gets 403.
	rec, _, hasIdentity := doRequest(t, chain, func(req *http.Request) {
		req.Header.Set("Authorization", bearer(t, testSecret, "u-1", "alice", false))
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, hasIdentity)

	// Unauthenticated gets 401, the admin check never runs.
	rec, _, hasIdentity = doRequest(t, chain, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hasIdentity)

	// Admin passes.
	rec, id, hasIdentity := doRequest(t, chain, func(req *http.Request) {
		req.Header.Set("Authorization", bearer(t, testSecret, "u-9", "root", true))
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasIdentity)
	assert.True(t, id.Admin)
}
