package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zazer0/neuronpedia/internal/config"
)

func rateCtx(t *testing.T, decorate func(*http.Request)) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/comments", nil)
	if decorate != nil {
		decorate(req)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/comments")
	return c
}

func TestBuildRateKeyStrategies(t *testing.T) {
	c := rateCtx(t, nil)
	c.Set("identity", Identity{UserID: "u-7"})

	cases := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:192.0.2.1"},
		{"user", "rl:user:u-7"},
		{"ip_route", "rl:ip:192.0.2.1:route:POST /v1/comments"},
		{"user_route", "rl:user:u-7:route:POST /v1/comments"},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: tc.strategy}
			assert.Equal(t, tc.want, buildRateKey(cfg, c))
		})
	}
}

// The limiter is installed after the server-wide OptionalUser, so by the
// time the key is built an authenticated caller has an identity and two
// users never share a bucket.
func TestUserKeyedBucketsSeeResolvedIdentity(t *testing.T) {
	r := newResolver()
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}

	keyFor := func(token string) string {
		c := rateCtx(t, func(req *http.Request) {
			if token != "" {
				req.Header.Set("Authorization", token)
			}
		})
		var key string
		chain := r.OptionalUser()(func(c echo.Context) error {
			key = buildRateKey(cfg, c)
			return nil
		})
		require.NoError(t, chain(c))
		return key
	}

	alice := keyFor(bearer(t, testSecret, "u-1", "alice", false))
	carol := keyFor(bearer(t, testSecret, "u-2", "carol", false))
	anon := keyFor("")

	assert.Equal(t, "rl:user:u-1", alice)
	assert.Equal(t, "rl:user:u-2", carol)
	assert.Equal(t, "rl:user:anon", anon)
	assert.NotEqual(t, alice, carol)
}
