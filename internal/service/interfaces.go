// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"io"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// AuthService owns account registration, credential verification and the
// token lifecycle (access JWT + rotating refresh sessions).
type AuthService interface {
	RegisterUser(ctx context.Context, creds models.Credentials) (models.User, error)
	Login(ctx context.Context, creds models.Credentials) (models.User, models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// SyncService owns the server half of the sync protocol: upload batches,
// delta pages and full snapshots. All payloads stay ciphertext end to end.
type SyncService interface {
	Upload(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error)
	Delta(ctx context.Context, userID int64, deviceID string, dataType models.DataType, sinceVersion int64, limit, offset int) (models.DeltaResponse, error)
	ResolveSince(ctx context.Context, userID int64, dataType models.DataType, since time.Time) (int64, error)
	GetSnapshot(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error)
	SaveSnapshot(ctx context.Context, userID int64, deviceID string, snapshot models.SnapshotPayload) error
}

// DeviceService owns device and session management for an account.
type DeviceService interface {
	ListDevices(ctx context.Context, userID int64) ([]models.Device, error)
	RevokeDevice(ctx context.Context, userID int64, deviceID, requestedBy string) error
	ListSessions(ctx context.Context, userID int64) ([]models.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID int64) error
}

// AuditService reads the sync_history trail.
type AuditService interface {
	History(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error)
	ExportCSV(ctx context.Context, userID int64, w io.Writer) error
}
