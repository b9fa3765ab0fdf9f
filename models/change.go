// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import (
	"fmt"
	"time"
)

// ChangeType is the closed set of mutations a record can undergo. Insert and
// update carry an encrypted payload; delete never does.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Valid reports whether c is one of the three supported change types.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// RequiresPayload reports whether this change type must carry ciphertext,
// nonce and checksum on the wire.
func (c ChangeType) RequiresPayload() bool {
	return c == ChangeInsert || c == ChangeUpdate
}

// Change is one record mutation inside an upload batch. Binary fields are
// base64-encoded in transit (standard encoding).
type Change struct {
	RecordID string     `json:"record_id"`
	Type     ChangeType `json:"change_type"`

	// EncryptedRecord, Nonce and Checksum are present for insert/update and
	// absent for delete. Checksum is hex SHA-256 of the raw ciphertext so the
	// server can reject tampered payloads without holding a key.
	EncryptedRecord string `json:"encrypted_record,omitempty"`
	Nonce           string `json:"record_nonce,omitempty"`
	Checksum        string `json:"record_checksum,omitempty"`

	// Override marks a terminal manual conflict resolution: the server applies
	// this change without timestamp comparison.
	Override bool `json:"override,omitempty"`
}

// Validate enforces the payload rules of the change type before anything is
// encrypted, stored or transmitted.
func (c Change) Validate() error {
	if c.RecordID == "" {
		return fmt.Errorf("change without record id")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown change type %q for record %s", string(c.Type), c.RecordID)
	}
	if c.Type.RequiresPayload() {
		if c.EncryptedRecord == "" || c.Nonce == "" || c.Checksum == "" {
			return fmt.Errorf("%s change for record %s is missing ciphertext, nonce or checksum", c.Type, c.RecordID)
		}
		return nil
	}
	if c.EncryptedRecord != "" || c.Nonce != "" || c.Checksum != "" {
		return fmt.Errorf("delete change for record %s must not carry a payload", c.RecordID)
	}
	return nil
}

// ChangeLogEntry is one row of the client-side append-only change log.
// Entries are never mutated after creation; a later entry for the same
// (data_type, record_id) supersedes earlier pending ones.
type ChangeLogEntry struct {
	ID              int64      `json:"id"`
	DataType        DataType   `json:"data_type"`
	RecordID        string     `json:"record_id"`
	Type            ChangeType `json:"change_type"`
	Payload         []byte     `json:"payload,omitempty"` // plaintext record JSON; encrypted only at upload time
	DeviceID        string     `json:"device_id"`
	ClientTimestamp time.Time  `json:"client_timestamp"`

	// ServerVersion is zero until the entry has been acknowledged by the
	// server, then records the version the server assigned.
	ServerVersion int64 `json:"server_version,omitempty"`
	Synced        bool  `json:"synced"`
}
