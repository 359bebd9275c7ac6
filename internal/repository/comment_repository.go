package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// Comment is a free-text annotation on a feature. Text is stored verbatim;
// length bounds are enforced at the validation boundary before any write.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ModelID   string    `json:"modelId"`
	Layer     string    `json:"layer"`
	Index     int64     `json:"index"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepo struct{ db *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// Create inserts a comment and returns the stored row.
func (r *CommentRepo) Create(ctx context.Context, userID, modelID, layer string, index int64, text string) (*Comment, error) {
	id := utils.NewID()
	const qInsert = "INSERT INTO comments (id, user_id, model_id, layer, idx, text) VALUES (?,?,?,?,?,?)"
	if _, err := r.db.ExecContext(ctx, qInsert, id, userID, modelID, layer, index, text); err != nil {
		return nil, err
	}
	const qSelect = "SELECT id, user_id, model_id, layer, idx, text, created_at FROM comments WHERE id = ?"
	var cm Comment
	if err := r.db.QueryRowContext(ctx, qSelect, id).
		Scan(&cm.ID, &cm.UserID, &cm.ModelID, &cm.Layer, &cm.Index, &cm.Text, &cm.CreatedAt); err != nil {
		return nil, err
	}
	return &cm, nil
}

// ListForNeuron returns the comments on one feature, oldest first.
func (r *CommentRepo) ListForNeuron(ctx context.Context, modelID, layer string, index int64) ([]*Comment, error) {
	const q = `SELECT id, user_id, model_id, layer, idx, text, created_at
	           FROM comments WHERE model_id = ? AND layer = ? AND idx = ?
	           ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, modelID, layer, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		cm := new(Comment)
		if err := rows.Scan(&cm.ID, &cm.UserID, &cm.ModelID, &cm.Layer, &cm.Index, &cm.Text, &cm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDAndOwner removes a comment owned by userID. ErrCommentNotFound
// when the row does not exist, ErrForbidden when it belongs to another user.
func (r *CommentRepo) DeleteByIDAndOwner(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM comments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM comments WHERE id = ? LIMIT 1", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		return ErrForbidden
	}
	return nil
}
