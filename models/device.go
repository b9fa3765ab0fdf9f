// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// Device is one client installation registered for an account. Devices are
// created on first login and deactivated (never hard-deleted) on revocation;
// revocation invalidates every refresh token issued to the device.
type Device struct {
	DeviceID   string     `json:"device_id"`
	UserID     int64      `json:"-"`
	Platform   string     `json:"platform"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Session is the server-side view of one refresh token. Relations to Device
// and User are plain id references; referential rules are enforced at the
// repository boundary, not via in-memory graphs.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	DeviceID  string    `json:"device_id"`
	TokenHash string    `json:"-"` // SHA-256 of the refresh token, never the token itself
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}
