// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// SyncRecord is the server-side unit of storage: one ciphertext blob plus the
// metadata needed for versioning and integrity checks. The server never holds
// the corresponding plaintext or any key material.
type SyncRecord struct {
	UserID   int64    `json:"-"`
	DataType DataType `json:"data_type"`
	RecordID string   `json:"record_id"`

	Ciphertext string `json:"encrypted_record"` // base64
	Nonce      string `json:"record_nonce"`     // base64, 96-bit
	Checksum   string `json:"record_checksum"`  // hex SHA-256 of ciphertext

	// Version is strictly increasing per (user, data_type) and assigned only
	// by the server. Clients never predict it.
	Version   int64     `json:"version"`
	DeviceID  string    `json:"device_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tombstone records an accepted deletion. It is retained until ExpiresAt so
// every device observes the delete before the marker is purged. A record id
// never exists simultaneously as a live SyncRecord and an unexpired Tombstone.
type Tombstone struct {
	DataType          DataType  `json:"data_type"`
	RecordID          string    `json:"record_id"`
	DeletedAt         time.Time `json:"deleted_at"`
	DeletedByDeviceID string    `json:"deleted_by_device_id"`
	Version           int64     `json:"version"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Expired reports whether the tombstone may be purged at the given instant.
func (t Tombstone) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
