// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityEvent is published when a user action worth auditing happens:
// a vote lands, a list is created, a signed upload is authorized. It carries
// enough for downstream consumers to log or trigger analytics without
// querying the primary database.
type ActivityEvent struct {
	Kind       string `json:"kind"` // "vote.cast" | "vote.removed" | "list.created" | "graph.upload_authorized"
	UserID     string `json:"user_id"`
	SubjectID  string `json:"subject_id"`           // explanation id, list id or upload filename
	ModelID    string `json:"model_id,omitempty"`   // set for feature-scoped activity
	Detail     string `json:"detail,omitempty"`     // free-form context (list name, object key)
	OccurredAt string `json:"occurred_at"`          // RFC3339 UTC
}
