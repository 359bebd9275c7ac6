// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios. Resource existence and
// resource ownership are independent facts: ErrForbidden means the row is
// there but belongs to someone else, while the per-entity not-found
// sentinels mean no such row at all. Handlers must never conflate the two.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an HTTP 403
// response.
var ErrForbidden = errors.New("forbidden")

// ErrRateLimited is returned when the signed-PUT audit log already holds the
// maximum number of authorizations for the caller's IP within the trailing
// window. Handlers should translate this into an HTTP 429 response.
var ErrRateLimited = errors.New("rate limited")

// ErrConflict is returned when a write cannot proceed because of conflicting
// state, such as registering a model id that already exists. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
