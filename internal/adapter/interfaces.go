// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

// Package adapter provides transport-layer abstractions for communicating
// with the sync server.
//
// The primary abstraction is [ServerAdapter], which decouples the agent's
// service layer from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPServerAdapter]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
// [IsRetryable] classifies the failures that belong in the offline queue.
package adapter

import (
	"context"
	"io"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the sync
// server. Implementations are responsible for serialisation, token
// management (including transparent refresh of an expired access token), and
// mapping transport-level errors to the sentinel values of this package.
type ServerAdapter interface {
	// SetTokens stores the token pair attached to all subsequent
	// authenticated requests. Called automatically after a successful Login
	// or Refresh.
	SetTokens(pair models.TokenPair)

	// AccessToken returns the bearer token currently held by the adapter, or
	// an empty string if none has been set.
	AccessToken() string

	// Register creates a new account. The response carries the
	// server-generated encryption salt the device must use for key
	// derivation.
	Register(ctx context.Context, creds models.Credentials) (models.User, error)

	// Login authenticates with the client-derived auth hash and stores the
	// issued token pair via SetTokens. The returned user carries the
	// encryption salt.
	Login(ctx context.Context, creds models.Credentials) (models.User, error)

	// Refresh rotates the held refresh token for a new pair. Returns
	// [ErrUnauthorized] (wrapped) when the session has been revoked.
	Refresh(ctx context.Context) (models.TokenPair, error)

	// Upload pushes one batch of encrypted changes. Conflicts come back
	// inside the response, not as an error.
	Upload(ctx context.Context, req models.UploadRequest) (models.UploadResponse, error)

	// Delta fetches one page of changes and the tombstones for the data type
	// since the given version checkpoint.
	Delta(ctx context.Context, dataType models.DataType, sinceVersion int64, limit, offset int) (models.DeltaResponse, error)

	// GetSnapshot fetches the stored full-vault blob for the data type.
	// Returns [ErrNotFound] (wrapped) when no snapshot exists yet.
	GetSnapshot(ctx context.Context, dataType models.DataType) (models.SnapshotPayload, error)

	// SaveSnapshot stores the full-vault blob for the data type.
	SaveSnapshot(ctx context.Context, snapshot models.SnapshotPayload) error

	// ListDevices returns every device registered for the account.
	ListDevices(ctx context.Context) ([]models.Device, error)

	// RevokeDevice deactivates a device and kills its sessions.
	RevokeDevice(ctx context.Context, deviceID string) error

	// ListSessions returns the account's refresh sessions.
	ListSessions(ctx context.Context) ([]models.Session, error)

	// RevokeSession revokes one refresh session by id.
	RevokeSession(ctx context.Context, sessionID int64) error

	// History returns one page of the account's sync audit trail.
	History(ctx context.Context, limit, offset int) (models.AuditPage, error)

	// ExportHistory streams the whole audit trail as CSV into w.
	ExportHistory(ctx context.Context, w io.Writer) error
}
