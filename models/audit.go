// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// AuditAction identifies the kind of event recorded in sync_history.
type AuditAction string

const (
	AuditUpload   AuditAction = "upload"
	AuditDownload AuditAction = "download"
	AuditConflict AuditAction = "conflict"
	AuditRevoke   AuditAction = "revoke"
	AuditLogin    AuditAction = "login"
)

// AuditEntry is one append-only row of the sync_history trail. Entries carry
// enough context to reconstruct what was attempted, and never plaintext or
// key material.
type AuditEntry struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"-"`
	DeviceID    string      `json:"device_id"`
	Action      AuditAction `json:"action"`
	DataType    DataType    `json:"data_type,omitempty"`
	RecordCount int         `json:"record_count"`
	Success     bool        `json:"success"`
	ErrorDetail string      `json:"error_detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
