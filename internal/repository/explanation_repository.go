package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// Explanation is a natural-language description of a feature, authored by a
// human or a bot account. Votes reference explanations by id.
type Explanation struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"modelId"`
	Layer     string    `json:"layer"`
	Index     int64     `json:"index"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"authorId"`
	Votes     int64     `json:"votes"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrExplanationNotFound = errors.New("explanation not found")

type ExplanationRepo struct{ db *sql.DB }

func NewExplanationRepo(db *sql.DB) *ExplanationRepo { return &ExplanationRepo{db: db} }

// Create inserts an explanation and returns the stored row.
func (r *ExplanationRepo) Create(ctx context.Context, modelID, layer string, index int64, text, authorID string) (*Explanation, error) {
	id := utils.NewID()
	const qInsert = "INSERT INTO explanations (id, model_id, layer, idx, text, author_id) VALUES (?,?,?,?,?,?)"
	if _, err := r.db.ExecContext(ctx, qInsert, id, modelID, layer, index, text, authorID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches one explanation together with its current vote count.
func (r *ExplanationRepo) GetByID(ctx context.Context, id string) (*Explanation, error) {
	const q = `SELECT e.id, e.model_id, e.layer, e.idx, e.text, e.author_id,
	                  (SELECT COUNT(*) FROM votes v WHERE v.explanation_id = e.id),
	                  e.created_at
	           FROM explanations e WHERE e.id = ?`
	var e Explanation
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&e.ID, &e.ModelID, &e.Layer, &e.Index, &e.Text, &e.AuthorID, &e.Votes, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExplanationNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListForNeuron returns all explanations of one feature, most voted first.
func (r *ExplanationRepo) ListForNeuron(ctx context.Context, modelID, layer string, index int64) ([]*Explanation, error) {
	const q = `SELECT e.id, e.model_id, e.layer, e.idx, e.text, e.author_id,
	                  (SELECT COUNT(*) FROM votes v WHERE v.explanation_id = e.id) AS votes,
	                  e.created_at
	           FROM explanations e
	           WHERE e.model_id = ? AND e.layer = ? AND e.idx = ?
	           ORDER BY votes DESC, e.created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, modelID, layer, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExplanations(rows)
}

// Delete removes an explanation by id regardless of author. Reserved for
// admin moderation; the handler guards the route. sql.ErrNoRows maps to
// ErrExplanationNotFound so the handler can answer 404.
func (r *ExplanationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM explanations WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExplanationNotFound
	}
	return nil
}

// SearchQuery defines filters & pagination for explanation search.
type SearchQuery struct {
	Text    string
	ModelID string
	Page    int
	PerPage int
}

// Search performs a case-insensitive substring search over explanation text
// with optional model filtering, returning one page plus the total count.
func (r *ExplanationRepo) Search(ctx context.Context, q SearchQuery) ([]*Explanation, int64, error) {
	where := []string{"1=1"}
	args := []any{}

	if q.Text != "" {
		where = append(where, "LOWER(e.text) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Text)+"%")
	}
	if q.ModelID != "" {
		where = append(where, "e.model_id = ?")
		args = append(args, q.ModelID)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := "SELECT COUNT(*) FROM explanations e WHERE " + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PerPage
	offset := (q.Page - 1) * q.PerPage

	dataSQL := `SELECT e.id, e.model_id, e.layer, e.idx, e.text, e.author_id,
	                   (SELECT COUNT(*) FROM votes v WHERE v.explanation_id = e.id) AS votes,
	                   e.created_at
	            FROM explanations e
	            WHERE ` + cond + `
	            ORDER BY votes DESC, e.created_at DESC
	            LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanExplanations(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanExplanations(rows *sql.Rows) ([]*Explanation, error) {
	var out []*Explanation
	for rows.Next() {
		e := new(Explanation)
		if err := rows.Scan(&e.ID, &e.ModelID, &e.Layer, &e.Index, &e.Text, &e.AuthorID, &e.Votes, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
