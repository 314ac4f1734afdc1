package types

import "time"

// SnapshotMessage represents a WebSocket tracker update message
type SnapshotMessage struct {
	Type      string           `json:"type"` // "snapshot"
	Active    []DownloadRecord `json:"active"`
	History   []DownloadRecord `json:"history"`
	Timestamp time.Time        `json:"timestamp"` // when the update occurred
}
