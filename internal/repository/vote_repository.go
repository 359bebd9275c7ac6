package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// Vote mirrors the 'votes' table. A row's existence is keyed uniquely by
// (user_id, explanation_id); the uniqueness is a database constraint, not
// application logic.
type Vote struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ExplanationID string    `json:"explanationId"`
	CreatedAt     time.Time `json:"createdAt"`
}

var ErrVoteNotFound = errors.New("vote not found")

type VoteRepo struct{ db *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{db: db} }

// Vote records a vote by userID on explanationID. Voting is idempotent:
// when a vote already exists the insert collapses into a no-op on the
// unique (user_id, explanation_id) key and the existing row is returned
// unchanged, same id and same created_at. ErrExplanationNotFound is
// returned when the target explanation does not exist.
func (r *VoteRepo) Vote(ctx context.Context, userID, explanationID string) (*Vote, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM explanations WHERE id = ? LIMIT 1", explanationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExplanationNotFound
	}
	if err != nil {
		return nil, err
	}

	// "id = id" makes the duplicate branch a true no-op; the pre-generated
	// id is discarded when the row already exists.
	const qUpsert = `INSERT INTO votes (id, user_id, explanation_id) VALUES (?,?,?)
	                 ON DUPLICATE KEY UPDATE id = id`
	if _, err := r.db.ExecContext(ctx, qUpsert, utils.NewID(), userID, explanationID); err != nil {
		return nil, err
	}

	const qSelect = `SELECT id, user_id, explanation_id, created_at
	                 FROM votes WHERE user_id = ? AND explanation_id = ?`
	var v Vote
	if err := r.db.QueryRowContext(ctx, qSelect, userID, explanationID).
		Scan(&v.ID, &v.UserID, &v.ExplanationID, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Unvote removes the caller's vote on an explanation. Unlike Vote this is
// strict: removing a vote that does not exist is ErrVoteNotFound, never a
// silent success. The asymmetry is observable API behavior and must hold.
func (r *VoteRepo) Unvote(ctx context.Context, userID, explanationID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM votes WHERE user_id = ? AND explanation_id = ?",
		userID, explanationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVoteNotFound
	}
	return nil
}
