package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column)
// and API keys. Both are stored hashed; the raw value never touches the
// database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the user id if a non-revoked, non-expired token
// exists for the given hash.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return "", err
	}
	if revokedAt.Valid {
		return "", sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// StoreAPIKey inserts an API key hash for a user. Keys do not expire; they
// stay valid until deleted.
func (r *TokenRepo) StoreAPIKey(ctx context.Context, userID, keyHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO api_keys (key_hash, user_id) VALUES (?,?)",
		keyHash, userID)
	return err
}

// UserIDForAPIKey resolves a key hash to its owning user id. sql.ErrNoRows
// is returned untouched for unknown keys so callers can treat it as a plain
// authentication failure.
func (r *TokenRepo) UserIDForAPIKey(ctx context.Context, keyHash string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM api_keys WHERE key_hash=? LIMIT 1",
		keyHash).Scan(&userID)
	return userID, err
}
