// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// UserRepository persists account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByLogin(ctx context.Context, login string) (models.User, error)
}

// SyncRepository persists encrypted sync records, tombstones and snapshots.
//
// ApplyChanges is the single write path for record mutations: it runs the
// whole upload batch in one transaction, assigns the next version from
// sync_state under a row lock, and reports per-record conflicts instead of
// failing the batch.
type SyncRepository interface {
	ApplyChanges(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error)
	GetChangesSince(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64, limit, offset int) ([]models.SyncRecord, int, error)
	GetTombstones(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64) ([]models.Tombstone, error)
	VersionCursorAt(ctx context.Context, userID int64, dataType models.DataType, at time.Time) (int64, error)
	PurgeExpiredTombstones(ctx context.Context, now time.Time) (int64, error)
	GetSnapshot(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error)
	SaveSnapshot(ctx context.Context, userID int64, snapshot models.SnapshotPayload) error
}

// DeviceRepository persists devices and their refresh-token sessions.
type DeviceRepository interface {
	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)
	ListDevices(ctx context.Context, userID int64) ([]models.Device, error)
	RevokeDevice(ctx context.Context, userID int64, deviceID string) error
	TouchLastSync(ctx context.Context, userID int64, deviceID string, at time.Time) error

	CreateSession(ctx context.Context, session models.Session) (models.Session, error)
	FindSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID int64) error
	ListSessions(ctx context.Context, userID int64) ([]models.Session, error)
}

// AuditRepository appends and reads the sync_history trail.
type AuditRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	List(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error)
	ListAll(ctx context.Context, userID int64) ([]models.AuditEntry, error)
}
