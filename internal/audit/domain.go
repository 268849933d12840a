// Package audit records who did what to which record, with a snapshot of
// the actor's permissions and a field-level diff of watched attributes.
// Recording is strictly best-effort: a failed audit write never fails the
// operation it describes.
package audit

import "time"

// Entry is one audit record.
type Entry struct {
	ID            int64          `json:"id"`
	ActorID       int64          `json:"actor_id"`
	Action        string         `json:"action"`
	Entity        string         `json:"entity"`
	EntityID      string         `json:"entity_id"`
	Meta          map[string]any `json:"meta,omitempty"`
	PermsSnapshot []string       `json:"perms_snapshot,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ListFilter narrows an audit log query. Zero values mean no filtering on
// that attribute.
type ListFilter struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Limit    int
	Offset   int
}
