// This file defines the List and ListEntry records. A List is owned by
// exactly one user and ownership is fixed at creation; every mutation below
// carries the owner id as a predicate on the statement itself, so the
// ownership check and the write are atomic from the store's point of view.
// When such a statement affects zero rows a follow-up existence read
// disambiguates "no such row" from "owned by someone else".
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// List represents a user-curated collection of features.
type List struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Entries     []*ListEntry `json:"entries,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ListEntry is one feature in a list, referencing a (modelId, layer, index)
// triple plus an optional free-text description. Descriptions are stored and
// returned verbatim.
type ListEntry struct {
	ID          string    `json:"id"`
	ListID      string    `json:"listId"`
	ModelID     string    `json:"modelId"`
	Layer       string    `json:"layer"`
	Index       int64     `json:"index"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

var ErrListNotFound = errors.New("list not found")
var ErrListEntryNotFound = errors.New("list entry not found")

type ListRepo struct{ db *sql.DB }

func NewListRepo(db *sql.DB) *ListRepo { return &ListRepo{db: db} }

// Create inserts a list owned by userID and returns the stored row.
func (r *ListRepo) Create(ctx context.Context, userID, name, description string) (*List, error) {
	id := utils.NewID()
	const qInsert = "INSERT INTO lists (id, user_id, name, description) VALUES (?,?,?,?)"
	if _, err := r.db.ExecContext(ctx, qInsert, id, userID, name, description); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a list with its entries. Lists are publicly readable;
// ownership only gates mutation.
func (r *ListRepo) GetByID(ctx context.Context, id string) (*List, error) {
	const q = "SELECT id, user_id, name, description, created_at, updated_at FROM lists WHERE id = ?"
	var l List
	if err := r.db.QueryRowContext(ctx, q, id).
		Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	const qEntries = `SELECT id, list_id, model_id, layer, idx, description, created_at
	                  FROM list_entries WHERE list_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, qEntries, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e := new(ListEntry)
		if err := rows.Scan(&e.ID, &e.ListID, &e.ModelID, &e.Layer, &e.Index, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByOwner returns all lists for one user ordered by creation, entries
// not included.
func (r *ListRepo) ListByOwner(ctx context.Context, userID string) ([]*List, error) {
	const q = `SELECT id, user_id, name, description, created_at, updated_at
	           FROM lists WHERE user_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*List
	for rows.Next() {
		l := new(List)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDAndOwner removes a list and its entries when it belongs to
// userID. Returns ErrListNotFound when the list does not exist and
// ErrForbidden when it exists under a different owner.
func (r *ListRepo) DeleteByIDAndOwner(ctx context.Context, id, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE e FROM list_entries e JOIN lists l ON l.id = e.list_id WHERE l.id = ? AND l.user_id = ?",
		id, userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM lists WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.classifyList(ctx, id)
	}
	return nil
}

// AddEntry appends a feature to a list owned by userID. The insert joins
// through the lists table so a non-owner cannot add entries no matter how
// the requests interleave.
func (r *ListRepo) AddEntry(ctx context.Context, listID, userID, modelID, layer string, index int64, description string) (*ListEntry, error) {
	id := utils.NewID()
	const qInsert = `INSERT INTO list_entries (id, list_id, model_id, layer, idx, description)
	                 SELECT ?, l.id, ?, ?, ?, ? FROM lists l WHERE l.id = ? AND l.user_id = ?`
	res, err := r.db.ExecContext(ctx, qInsert, id, modelID, layer, index, description, listID, userID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, r.classifyList(ctx, listID)
	}

	const qSelect = `SELECT id, list_id, model_id, layer, idx, description, created_at
	                 FROM list_entries WHERE id = ?`
	var e ListEntry
	if err := r.db.QueryRowContext(ctx, qSelect, id).
		Scan(&e.ID, &e.ListID, &e.ModelID, &e.Layer, &e.Index, &e.Description, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntryDescription rewrites an entry's description when the enclosing
// list belongs to userID.
func (r *ListRepo) UpdateEntryDescription(ctx context.Context, entryID, listID, userID, description string) (*ListEntry, error) {
	const qUpdate = `UPDATE list_entries e JOIN lists l ON l.id = e.list_id
	                 SET e.description = ?
	                 WHERE e.id = ? AND l.id = ? AND l.user_id = ?`
	res, err := r.db.ExecContext(ctx, qUpdate, description, entryID, listID, userID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Zero rows is ambiguous on MySQL: the row may be missing, owned by
		// someone else, or already carry this exact description. Resolve by
		// reading the entry back.
		var got ListEntry
		const qCheck = `SELECT e.id, e.list_id, e.model_id, e.layer, e.idx, e.description, e.created_at
		                FROM list_entries e WHERE e.id = ? AND e.list_id = ?`
		err := r.db.QueryRowContext(ctx, qCheck, entryID, listID).
			Scan(&got.ID, &got.ListID, &got.ModelID, &got.Layer, &got.Index, &got.Description, &got.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListEntryNotFound
		}
		if err != nil {
			return nil, err
		}
		if ownerErr := r.requireOwner(ctx, listID, userID); ownerErr != nil {
			return nil, ownerErr
		}
		return &got, nil
	}

	const qSelect = `SELECT id, list_id, model_id, layer, idx, description, created_at
	                 FROM list_entries WHERE id = ?`
	var e ListEntry
	if err := r.db.QueryRowContext(ctx, qSelect, entryID).
		Scan(&e.ID, &e.ListID, &e.ModelID, &e.Layer, &e.Index, &e.Description, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// classifyList turns an affected-rows==0 outcome into the right sentinel.
func (r *ListRepo) classifyList(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM lists WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrListNotFound
	}
	if err != nil {
		return err
	}
	return ErrForbidden
}

// requireOwner returns ErrForbidden unless the list belongs to userID.
func (r *ListRepo) requireOwner(ctx context.Context, listID, userID string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM lists WHERE id = ? LIMIT 1", listID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrListNotFound
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}
