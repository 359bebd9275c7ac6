// Package handler defines the HTTP handlers. Every handler follows the same
// shape: resolve identity (done by middleware), validate the request body or
// params, call the data layer, translate sentinel errors into status codes.
// Validation and authorization always reject before any mutating store call.
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/middleware"
)

// errNoIdentity aborts a handler after the 401 envelope has been written.
// Echo's error handler sees the committed response and writes nothing more.
var errNoIdentity = errors.New("no identity in context")

// dbTimeout bounds every store round trip made from a handler.
const dbTimeout = 5 * time.Second

// featureRef is the (modelId, layer, index) tuple most write bodies carry.
type featureRef struct {
	ModelID string `json:"modelId"`
	Layer   string `json:"layer"`
	Index   int64  `json:"index"`
}

var layerRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// validateFeatureRef checks a triple for shape only; existence is the data
// layer's concern. Returns a human-readable message or "".
func validateFeatureRef(f featureRef) string {
	if f.ModelID == "" {
		return "modelId is required"
	}
	if f.Layer == "" {
		return "layer is required"
	}
	if !layerRe.MatchString(f.Layer) {
		return "layer contains invalid characters"
	}
	if f.Index < 0 {
		return "index must be non-negative"
	}
	return ""
}

// currentUser pulls the identity injected by the guards. Routes behind
// RequireUser always have one; the fallback 401 only fires if a route was
// wired without its guard. The returned error is always non-nil on that
// path so the caller's early return actually stops the handler.
func currentUser(c echo.Context) (middleware.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		if err := c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"}); err != nil {
			return middleware.Identity{}, err
		}
		return middleware.Identity{}, errNoIdentity
	}
	return id, nil
}

// paramIndex parses the :index route segment.
func paramIndex(c echo.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
