// Package middleware provides reusable HTTP middleware: caller identity
// resolution, role enforcement, the global token-bucket rate limiter and the
// response cache.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/repository"
	"github.com/zazer0/neuronpedia/internal/utils"
)

// identityKey is the context key under which the resolved Identity is stored.
const identityKey = "identity"

// Identity is the caller resolved for one request. It is built exactly once
// by the resolver middleware and never mutated afterwards; handlers read it
// through CurrentIdentity.
type Identity struct {
	UserID    string
	Name      string
	Admin     bool
	Bot       bool
	ViaAPIKey bool // true when the caller authenticated with X-Api-Key
}

// keyStore resolves an API key hash to its owning user id.
type keyStore interface {
	UserIDForAPIKey(ctx context.Context, keyHash string) (string, error)
}

// userStore loads a user row for the API-key path, which needs the admin and
// bot flags that a JWT carries in its claims.
type userStore interface {
	GetByID(ctx context.Context, id string) (repository.User, error)
}

// Resolver turns request credentials into an Identity. Two credential kinds
// are accepted: an HS256 bearer token minted by the auth handlers (no store
// round trip) and an X-Api-Key header (one lookup against the hashed key
// table plus a user read).
type Resolver struct {
	Secret string
	Keys   keyStore
	Users  userStore
}

// OptionalUser resolves the caller identity when credentials are present and
// otherwise lets the request through anonymously. It never rejects: routes
// using this guard serve anonymous callers, and handlers downstream use the
// identity, if any, for ownership checks or visibility filtering.
func (r *Resolver) OptionalUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := r.resolve(c); ok {
				c.Set(identityKey, id)
			}
			return next(c)
		}
	}
}

// RequireUser resolves the caller identity and rejects with 401 when no
// valid credential is presented. Handler logic is never invoked for
// unauthenticated requests. An identity already resolved earlier in the
// chain (the server-wide OptionalUser) is reused, not re-parsed.
func (r *Resolver) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentIdentity(c); ok {
				return next(c)
			}
			id, ok := r.resolve(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// RequireAdmin enforces the admin flag on an identity resolved by a prior
// RequireUser in the chain. Authenticated non-admins get 403, uniformly.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !id.Admin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin required"})
			}
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity resolved for this request, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// resolve tries the bearer token first, then the API key header. Invalid
// credentials resolve to anonymous; the guards above decide whether that is
// acceptable for the route.
func (r *Resolver) resolve(c echo.Context) (Identity, bool) {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return r.fromBearer(strings.TrimPrefix(auth, "Bearer "))
	}
	if key := c.Request().Header.Get("X-Api-Key"); key != "" {
		return r.fromAPIKey(c.Request().Context(), key)
	}
	return Identity{}, false
}

func (r *Resolver) fromBearer(raw string) (Identity, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(r.Secret), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, false
	}
	name, _ := claims["name"].(string)
	admin, _ := claims["adm"].(bool)
	bot, _ := claims["bot"].(bool)
	return Identity{UserID: sub, Name: name, Admin: admin, Bot: bot}, true
}

func (r *Resolver) fromAPIKey(ctx context.Context, raw string) (Identity, bool) {
	if r.Keys == nil || r.Users == nil {
		return Identity{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	userID, err := r.Keys.UserIDForAPIKey(ctx, utils.HashAPIKey(raw))
	if err != nil {
		return Identity{}, false
	}
	u, err := r.Users.GetByID(ctx, userID)
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: u.ID, Name: u.Name, Admin: u.Admin, Bot: u.Bot, ViaAPIKey: true}, true
}
