// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// deviceRepository is the PostgreSQL-backed implementation of
// [DeviceRepository]. It owns the devices and refresh_tokens tables.
type deviceRepository struct {
	*DB
	logger *logger.Logger
}

// NewDeviceRepository constructs a [DeviceRepository] backed by the provided
// database connection and logger.
func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceRepository {
	logger.Debug().Msg("creating device repository")
	return &deviceRepository{
		DB:     db,
		logger: logger,
	}
}

// RegisterDevice upserts the device row. A previously revoked device that
// logs in again is reactivated; platform metadata is refreshed on every call.
func (r *deviceRepository) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, registerDevice, device.DeviceID, device.UserID, device.Platform)

	if err := row.Scan(&device.DeviceID, &device.UserID, &device.Platform, &device.LastSyncAt, &device.IsActive, &device.CreatedAt); err != nil {
		log.Err(err).
			Str("func", "deviceRepository.RegisterDevice").
			Str("device_id", device.DeviceID).
			Int64("user_id", device.UserID).
			Msg("failed to register device")
		return models.Device{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return device, nil
}

// ListDevices returns every device ever registered for the user, active and
// revoked alike, oldest first.
func (r *deviceRepository) ListDevices(ctx context.Context, userID int64) ([]models.Device, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listDevices, userID)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.ListDevices").
			Int64("user_id", userID).
			Msg("failed to execute device list query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	devices := make([]models.Device, 0, 4)

	for rows.Next() {
		var d models.Device

		if scanErr := rows.Scan(&d.DeviceID, &d.UserID, &d.Platform, &d.LastSyncAt, &d.IsActive, &d.CreatedAt); scanErr != nil {
			log.Err(scanErr).
				Str("func", "deviceRepository.ListDevices").
				Int64("user_id", userID).
				Msg("failed to scan device row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		devices = append(devices, d)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return devices, nil
}

// RevokeDevice deactivates the device and revokes all of its refresh-token
// sessions in one transaction. Returns [ErrDeviceNotFound] when the device
// is unknown or already revoked.
func (r *deviceRepository) RevokeDevice(ctx context.Context, userID int64, deviceID string) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.RevokeDevice").
			Str("device_id", deviceID).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, deactivateDevice, userID, deviceID)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.RevokeDevice").
			Str("device_id", deviceID).
			Msg("failed to deactivate device")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		log.Warn().
			Str("func", "deviceRepository.RevokeDevice").
			Str("device_id", deviceID).
			Int64("user_id", userID).
			Msg("device not found or already revoked")
		return ErrDeviceNotFound
	}

	if _, err := tx.ExecContext(ctx, revokeDeviceSessions, userID, deviceID); err != nil {
		log.Err(err).
			Str("func", "deviceRepository.RevokeDevice").
			Str("device_id", deviceID).
			Msg("failed to revoke device sessions")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "deviceRepository.RevokeDevice").
			Str("device_id", deviceID).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "deviceRepository.RevokeDevice").
		Str("device_id", deviceID).
		Int64("user_id", userID).
		Msg("device revoked")

	return nil
}

// TouchLastSync records the moment the device last completed a sync exchange.
func (r *deviceRepository) TouchLastSync(ctx context.Context, userID int64, deviceID string, at time.Time) error {
	if _, err := r.DB.ExecContext(ctx, touchDeviceLastSync, userID, deviceID, at); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "deviceRepository.TouchLastSync").
			Str("device_id", deviceID).
			Msg("failed to touch device last_sync_at")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// CreateSession stores the hash of a freshly issued refresh token.
func (r *deviceRepository) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, createSession, session.UserID, session.DeviceID, session.TokenHash, session.ExpiresAt)

	if err := row.Scan(&session.ID, &session.UserID, &session.DeviceID, &session.TokenHash, &session.ExpiresAt, &session.Revoked, &session.CreatedAt); err != nil {
		log.Err(err).
			Str("func", "deviceRepository.CreateSession").
			Str("device_id", session.DeviceID).
			Msg("failed to create session")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return session, nil
}

// FindSessionByTokenHash returns the active, unexpired session matching the
// refresh-token hash. Returns [ErrSessionNotFound] otherwise, so a revoked
// and an unknown token are indistinguishable to the caller.
func (r *deviceRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var session models.Session

	err := r.DB.QueryRowContext(ctx, findSessionByTokenHash, tokenHash).
		Scan(&session.ID, &session.UserID, &session.DeviceID, &session.TokenHash, &session.ExpiresAt, &session.Revoked, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "deviceRepository.FindSessionByTokenHash").
			Msg("failed to find session")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return session, nil
}

// RevokeSession marks a single session revoked. Returns [ErrSessionNotFound]
// when the id does not belong to the user or is already revoked.
func (r *deviceRepository) RevokeSession(ctx context.Context, userID, sessionID int64) error {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, revokeSession, userID, sessionID)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.RevokeSession").
			Int64("session_id", sessionID).
			Msg("failed to revoke session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// ListSessions returns every session of the user, newest first, including
// revoked and expired ones so the owner can audit historic logins.
func (r *deviceRepository) ListSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listSessions, userID)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.ListSessions").
			Int64("user_id", userID).
			Msg("failed to execute session list query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	sessions := make([]models.Session, 0, 8)

	for rows.Next() {
		var s models.Session

		if scanErr := rows.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.TokenHash, &s.ExpiresAt, &s.Revoked, &s.CreatedAt); scanErr != nil {
			log.Err(scanErr).
				Str("func", "deviceRepository.ListSessions").
				Int64("user_id", userID).
				Msg("failed to scan session row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		sessions = append(sessions, s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return sessions, nil
}
