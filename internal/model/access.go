package model

import "encoding/json"

// Grant is a scoped credential owned by the access-control layer. The core
// preserves the schema and reads it; it never writes grants.
type Grant struct {
	ID        string   `json:"id"`
	ServiceID string   `json:"service_id"`
	Scopes    []string `json:"scopes"`
	ExpiresAt string   `json:"expires_at"`
	Token     string   `json:"token"`
}

// Audit is one append-only record of an administrative action.
type Audit struct {
	ID      int64           `json:"id"`
	TS      int64           `json:"ts"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
