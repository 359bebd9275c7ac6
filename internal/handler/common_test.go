package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/middleware"
)

// newCtx builds an echo context for a JSON request. Path params are set in
// pairs: name, value, name, value.
func newCtx(t *testing.T, method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

// asUser marks the request as authenticated, the way the guards do.
func asUser(c echo.Context, userID string) {
	c.Set("identity", middleware.Identity{UserID: userID, Name: "user-" + userID})
}

func TestValidateFeatureRef(t *testing.T) {
	cases := []struct {
		name string
		ref  featureRef
		want string
	}{
		{"valid", featureRef{ModelID: "gpt2-small", Layer: "6-res-jb", Index: 14057}, ""},
		{"valid dotted layer", featureRef{ModelID: "gemma-2-2b", Layer: "blocks.0.hook_resid_post", Index: 0}, ""},
		{"missing model", featureRef{Layer: "6-res-jb", Index: 1}, "modelId is required"},
		{"missing layer", featureRef{ModelID: "gpt2-small", Index: 1}, "layer is required"},
		{"layer with slash", featureRef{ModelID: "gpt2-small", Layer: "6/res", Index: 1}, "layer contains invalid characters"},
		{"layer with space", featureRef{ModelID: "gpt2-small", Layer: "6 res", Index: 1}, "layer contains invalid characters"},
		{"negative index", featureRef{ModelID: "gpt2-small", Layer: "6-res-jb", Index: -1}, "index must be non-negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validateFeatureRef(tc.ref))
		})
	}
}

func TestCurrentUserWithoutIdentity(t *testing.T) {
	c, rec := newCtx(t, http.MethodPost, "/v1/comments", "{}")
	_, err := currentUser(c)
	// The 401 envelope is written here, and the error must be non-nil so
	// the calling handler stops instead of running with a zero identity.
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
