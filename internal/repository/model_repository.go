// Package repository contains data access logic separated from HTTP
// handlers. This file defines the Model and Source records of the catalog.
// A Model is a subject network (e.g. "gpt2-small"); a Source is an external
// decomposition artifact (typically an SAE) whose features this service
// catalogs. Both are reference data: registered by admins, read by everyone.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Model represents a subject model row. The id doubles as the public
// identifier used in URLs ("gpt2-small"), so it is caller-chosen rather
// than generated.
type Model struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Layers      int       `json:"layers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Source represents one decomposition artifact attached to a model, keyed
// by (model_id, id) where id is a layer-qualified name like "6-res-jb".
type Source struct {
	ModelID   string    `json:"modelId"`
	ID        string    `json:"id"`
	NumFeats  int       `json:"numFeatures"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrModelNotFound = errors.New("model not found")

type ModelRepo struct{ db *sql.DB }

func NewModelRepo(db *sql.DB) *ModelRepo { return &ModelRepo{db: db} }

// Create registers a model. Registering an id that already exists surfaces
// ErrConflict so the handler can answer 409 instead of a generic failure.
func (r *ModelRepo) Create(ctx context.Context, m *Model) error {
	const q = "INSERT INTO models (id, display_name, layers) VALUES (?,?,?)"
	if _, err := r.db.ExecContext(ctx, q, m.ID, m.DisplayName, m.Layers); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	const qSelect = "SELECT created_at FROM models WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, m.ID).Scan(&m.CreatedAt)
}

// GetByID fetches a model by its public id.
func (r *ModelRepo) GetByID(ctx context.Context, id string) (*Model, error) {
	const q = "SELECT id, display_name, layers, created_at FROM models WHERE id = ?"
	var m Model
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.DisplayName, &m.Layers, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns all models ordered by id.
func (r *ModelRepo) List(ctx context.Context) ([]*Model, error) {
	const q = "SELECT id, display_name, layers, created_at FROM models ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Model
	for rows.Next() {
		m := new(Model)
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Layers, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSources returns the sources registered for one model ordered by id.
// ErrModelNotFound is returned when the model itself is missing, so the
// handler can distinguish "unknown model" from "model with no sources".
func (r *ModelRepo) ListSources(ctx context.Context, modelID string) ([]*Source, error) {
	if _, err := r.GetByID(ctx, modelID); err != nil {
		return nil, err
	}
	const q = "SELECT model_id, id, num_features, created_at FROM sources WHERE model_id = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		s := new(Source)
		if err := rows.Scan(&s.ModelID, &s.ID, &s.NumFeats, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
