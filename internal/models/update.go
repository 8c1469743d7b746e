package models

import "encoding/json"

// Update types that are not collection names.
const (
	UpdateHeartbeat = "heartbeat"
	UpdateSync      = "sync"
)

// ContentUpdate describes one change, as served by the status endpoint and
// delivered to notifier subscribers.
type ContentUpdate struct {
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// StatusResponse is the body of GET /api/github/status.
type StatusResponse struct {
	HasUpdates bool            `json:"hasUpdates"`
	Updates    []ContentUpdate `json:"updates"`
	Cursor     uint64          `json:"cursor"`
	Source     string          `json:"source,omitempty"`
}

// SyncResult is the body of POST /api/github/sync.
type SyncResult struct {
	Synced    bool   `json:"synced"`
	Source    string `json:"source"`
	Projects  int    `json:"projects"`
	Posts     int    `json:"posts"`
	Timestamp string `json:"timestamp"`
}
