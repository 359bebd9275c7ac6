package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// Neuron is one identified feature of a model's internal representation,
// keyed by the (modelId, layer, index) triple used throughout the API.
// Activations are precomputed by the inference service and stored as JSON
// arrays of token/value pairs; this service only serves them back.
type Neuron struct {
	ModelID     string          `json:"modelId"`
	Layer       string          `json:"layer"`
	Index       int64           `json:"index"`
	MaxActValue float64         `json:"maxActValue"`
	Activations json.RawMessage `json:"activations,omitempty"`
}

var ErrNeuronNotFound = errors.New("neuron not found")

type NeuronRepo struct{ db *sql.DB }

func NewNeuronRepo(db *sql.DB) *NeuronRepo { return &NeuronRepo{db: db} }

// Get fetches a single feature with its stored activation records.
func (r *NeuronRepo) Get(ctx context.Context, modelID, layer string, index int64) (*Neuron, error) {
	const q = `SELECT model_id, layer, idx, max_act_value, COALESCE(activations, 'null')
	           FROM neurons WHERE model_id = ? AND layer = ? AND idx = ?`
	var n Neuron
	var acts []byte
	err := r.db.QueryRowContext(ctx, q, modelID, layer, index).
		Scan(&n.ModelID, &n.Layer, &n.Index, &n.MaxActValue, &acts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNeuronNotFound
		}
		return nil, err
	}
	n.Activations = json.RawMessage(acts)
	return &n, nil
}

// Exists reports whether a feature triple is known. Used by write paths
// (explanations, list entries, bookmarks) to reject dangling references
// before inserting.
func (r *NeuronRepo) Exists(ctx context.Context, modelID, layer string, index int64) (bool, error) {
	const q = "SELECT 1 FROM neurons WHERE model_id = ? AND layer = ? AND idx = ? LIMIT 1"
	var one int
	err := r.db.QueryRowContext(ctx, q, modelID, layer, index).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
