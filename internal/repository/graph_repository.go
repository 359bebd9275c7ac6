// This file defines the attribution-graph records: GraphMetadata points at a
// graph JSON blob in object storage, Subgraph is a user-saved selection over
// one graph, and PutRequest is the append-only audit log behind the
// signed-PUT rate limit. Audit rows are never updated or deleted; the
// trailing-window count re-scans the log at request time.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/zazer0/neuronpedia/internal/utils"
)

// GraphMetadata references one attribution-graph blob by model and slug.
type GraphMetadata struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ModelID   string    `json:"modelId"`
	Slug      string    `json:"slug"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subgraph is a saved selection (pinned nodes plus display state) over one
// graph. The payload is opaque JSON owned by the frontend.
type Subgraph struct {
	ID        string          `json:"id"`
	GraphID   string          `json:"graphId"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PutRequest is one row of the signed-PUT audit log.
type PutRequest struct {
	ID        string
	IP        string
	Filename  string
	URL       string
	UserID    string
	CreatedAt time.Time
}

var ErrGraphNotFound = errors.New("graph not found")
var ErrSubgraphNotFound = errors.New("subgraph not found")

type GraphRepo struct{ db *sql.DB }

func NewGraphRepo(db *sql.DB) *GraphRepo { return &GraphRepo{db: db} }

// GetBySlug fetches graph metadata by model id and slug.
func (r *GraphRepo) GetBySlug(ctx context.Context, modelID, slug string) (*GraphMetadata, error) {
	const q = `SELECT id, user_id, model_id, slug, url, created_at
	           FROM graph_metadata WHERE model_id = ? AND slug = ?`
	var g GraphMetadata
	if err := r.db.QueryRowContext(ctx, q, modelID, slug).
		Scan(&g.ID, &g.UserID, &g.ModelID, &g.Slug, &g.URL, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGraphNotFound
		}
		return nil, err
	}
	return &g, nil
}

// GetByID fetches graph metadata by id.
func (r *GraphRepo) GetByID(ctx context.Context, id string) (*GraphMetadata, error) {
	const q = "SELECT id, user_id, model_id, slug, url, created_at FROM graph_metadata WHERE id = ?"
	var g GraphMetadata
	if err := r.db.QueryRowContext(ctx, q, id).
		Scan(&g.ID, &g.UserID, &g.ModelID, &g.Slug, &g.URL, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGraphNotFound
		}
		return nil, err
	}
	return &g, nil
}

// CreateSubgraph inserts a new subgraph for userID on graphID.
func (r *GraphRepo) CreateSubgraph(ctx context.Context, graphID, userID, name string, data json.RawMessage) (*Subgraph, error) {
	if _, err := r.GetByID(ctx, graphID); err != nil {
		return nil, err
	}
	id := utils.NewID()
	const qInsert = "INSERT INTO graph_subgraphs (id, graph_id, user_id, name, data) VALUES (?,?,?,?,?)"
	if _, err := r.db.ExecContext(ctx, qInsert, id, graphID, userID, name, []byte(data)); err != nil {
		return nil, err
	}
	return r.getSubgraph(ctx, id)
}

// OverwriteSubgraph replaces the payload of an existing subgraph. The update
// carries the owner predicate on the statement itself, so a non-owner can
// never win a race between an ownership read and the write: for them the
// update simply matches zero rows.
func (r *GraphRepo) OverwriteSubgraph(ctx context.Context, id, userID, name string, data json.RawMessage) (*Subgraph, error) {
	const qUpdate = `UPDATE graph_subgraphs SET name = ?, data = ?, updated_at = NOW()
	                 WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, qUpdate, name, []byte(data), id, userID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, r.classifySubgraph(ctx, id)
	}
	return r.getSubgraph(ctx, id)
}

// DeleteSubgraphByIDAndOwner removes a subgraph owned by userID.
func (r *GraphRepo) DeleteSubgraphByIDAndOwner(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM graph_subgraphs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.classifySubgraph(ctx, id)
	}
	return nil
}

// ListSubgraphs returns the subgraphs saved on one graph, newest first.
func (r *GraphRepo) ListSubgraphs(ctx context.Context, graphID string) ([]*Subgraph, error) {
	const q = `SELECT id, graph_id, user_id, name, data, created_at, updated_at
	           FROM graph_subgraphs WHERE graph_id = ? ORDER BY updated_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Subgraph
	for rows.Next() {
		s := new(Subgraph)
		var data []byte
		if err := rows.Scan(&s.ID, &s.GraphID, &s.UserID, &s.Name, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountRecentPutRequests counts signed-PUT authorizations for one IP whose
// created_at falls within the trailing window ending now. No pre-aggregated
// counter exists; correctness depends on re-scanning the append-only log.
func (r *GraphRepo) CountRecentPutRequests(ctx context.Context, ip string, since time.Time) (int, error) {
	const q = "SELECT COUNT(*) FROM graph_put_requests WHERE ip_address = ? AND created_at >= ?"
	var n int
	err := r.db.QueryRowContext(ctx, q, ip, since).Scan(&n)
	return n, err
}

// RecordPutRequest appends one audit row for an issued presigned URL.
func (r *GraphRepo) RecordPutRequest(ctx context.Context, ip, filename, url, userID string) error {
	const q = "INSERT INTO graph_put_requests (id, ip_address, filename, url, user_id) VALUES (?,?,?,?,?)"
	_, err := r.db.ExecContext(ctx, q, utils.NewID(), ip, filename, url, userID)
	return err
}

func (r *GraphRepo) getSubgraph(ctx context.Context, id string) (*Subgraph, error) {
	const q = `SELECT id, graph_id, user_id, name, data, created_at, updated_at
	           FROM graph_subgraphs WHERE id = ?`
	var s Subgraph
	var data []byte
	if err := r.db.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.GraphID, &s.UserID, &s.Name, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubgraphNotFound
		}
		return nil, err
	}
	s.Data = json.RawMessage(data)
	return &s, nil
}

func (r *GraphRepo) classifySubgraph(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM graph_subgraphs WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubgraphNotFound
	}
	if err != nil {
		return err
	}
	return ErrForbidden
}
