package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// Bookmark marks a feature a user wants to come back to. One row per
// (user, modelId, layer, index); adding an existing bookmark returns the
// existing row, mirroring the vote semantics.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ModelID   string    `json:"modelId"`
	Layer     string    `json:"layer"`
	Index     int64     `json:"index"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrBookmarkNotFound = errors.New("bookmark not found")

type BookmarkRepo struct{ db *sql.DB }

func NewBookmarkRepo(db *sql.DB) *BookmarkRepo { return &BookmarkRepo{db: db} }

// Add creates the bookmark if missing and returns the stored row either way.
func (r *BookmarkRepo) Add(ctx context.Context, userID, modelID, layer string, index int64) (*Bookmark, error) {
	const qUpsert = `INSERT INTO bookmarks (id, user_id, model_id, layer, idx) VALUES (?,?,?,?,?)
	                 ON DUPLICATE KEY UPDATE id = id`
	if _, err := r.db.ExecContext(ctx, qUpsert, utils.NewID(), userID, modelID, layer, index); err != nil {
		return nil, err
	}
	const qSelect = `SELECT id, user_id, model_id, layer, idx, created_at
	                 FROM bookmarks WHERE user_id = ? AND model_id = ? AND layer = ? AND idx = ?`
	var b Bookmark
	if err := r.db.QueryRowContext(ctx, qSelect, userID, modelID, layer, index).
		Scan(&b.ID, &b.UserID, &b.ModelID, &b.Layer, &b.Index, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser returns the caller's bookmarks, newest first.
func (r *BookmarkRepo) ListByUser(ctx context.Context, userID string) ([]*Bookmark, error) {
	const q = `SELECT id, user_id, model_id, layer, idx, created_at
	           FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Bookmark
	for rows.Next() {
		b := new(Bookmark)
		if err := rows.Scan(&b.ID, &b.UserID, &b.ModelID, &b.Layer, &b.Index, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDAndOwner removes one bookmark owned by userID, distinguishing
// missing rows from rows owned by someone else.
func (r *BookmarkRepo) DeleteByIDAndOwner(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM bookmarks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM bookmarks WHERE id = ? LIMIT 1", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookmarkNotFound
		}
		if err != nil {
			return err
		}
		return ErrForbidden
	}
	return nil
}
