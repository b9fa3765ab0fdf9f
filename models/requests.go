// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// MaxBatchSize caps the number of changes in one upload request; larger
// batches are rejected by the server before any write.
const MaxBatchSize = 1000

// Delta pagination limits.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// UploadRequest is one batch of encrypted changes pushed by a device.
type UploadRequest struct {
	DataType        DataType  `json:"data_type"`
	DeviceID        string    `json:"device_id"`
	ClientTimestamp time.Time `json:"client_timestamp"`
	Changes         []Change  `json:"changes"`
}

// UploadResponse reports the outcome of an upload batch. Conflicts are not
// failures: each carries both versions and timestamps so the client-side
// resolver can act.
type UploadResponse struct {
	Version        int64          `json:"version"`
	ProcessedCount int            `json:"processed_count"`
	Conflicts      []ConflictInfo `json:"conflicts,omitempty"`
}

// Pagination describes the remainder of a delta window.
type Pagination struct {
	TotalChanges int  `json:"total_changes"`
	HasMore      bool `json:"has_more"`
	NextOffset   int  `json:"next_offset"`
}

// DeltaResponse is one page of changes and tombstones since a checkpoint.
type DeltaResponse struct {
	Changes    []SyncRecord `json:"changes"`
	Deleted    []Tombstone  `json:"deleted"`
	Pagination Pagination   `json:"pagination"`
}

// SnapshotPayload is the full-vault blob shape used by GET/POST snapshot.
type SnapshotPayload struct {
	DataType      DataType   `json:"data_type"`
	EncryptedBlob string     `json:"encrypted_blob"` // base64
	Nonce         string     `json:"nonce"`          // base64
	Checksum      string     `json:"checksum"`       // hex SHA-256
	Version       int64      `json:"version"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}

// AuthResponse is the register/login response body. The refresh token appears
// here exactly once; the server retains only its hash.
type AuthResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// RefreshRequest presents a refresh token for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuditPage is one page of the sync_history trail.
type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	Pagination Pagination   `json:"pagination"`
}
