package models

import "time"

// AuditLog records administrative actions and settlement transitions for
// offline inspection. Unmatched gateway callbacks land here as dead-letter
// rows (entity_type "mpesa_callback", action "dead_letter").
type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
