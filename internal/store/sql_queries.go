// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

const (
	createUser = `INSERT INTO users (login, auth_hash, encryption_salt)
    VALUES ($1, $2, $3)
    RETURNING user_id, login, auth_hash, encryption_salt, created_at;`

	findUserByLogin = `SELECT user_id, login, auth_hash, encryption_salt, created_at
    FROM users
    WHERE login = $1;`

	// lockSyncState creates the version counter row on first contact and
	// returns the current value with the row locked for the duration of the
	// transaction. The no-op DO UPDATE is what takes the lock on conflict.
	lockSyncState = `INSERT INTO sync_state (user_id, data_type)
		VALUES ($1, $2)
		ON CONFLICT (user_id, data_type)
		DO UPDATE SET current_version = sync_state.current_version
		RETURNING current_version;`

	setSyncState = `UPDATE sync_state
		SET current_version = $3
		WHERE user_id = $1 AND data_type = $2;`

	getRecordForUpdate = `SELECT ciphertext, nonce, checksum, version, device_id, updated_at
		FROM sync_records
		WHERE user_id = $1 AND data_type = $2 AND record_id = $3
		FOR UPDATE;`

	getTombstoneForUpdate = `SELECT deleted_at, deleted_by_device_id, expires_at
		FROM tombstones
		WHERE user_id = $1 AND data_type = $2 AND record_id = $3
		FOR UPDATE;`

	upsertRecord = `INSERT INTO sync_records (
			user_id,
			data_type,
			record_id,
			ciphertext,
			nonce,
			checksum,
			version,
			device_id,
			updated_at,
			changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, data_type, record_id)
		DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			nonce      = EXCLUDED.nonce,
			checksum   = EXCLUDED.checksum,
			version    = EXCLUDED.version,
			device_id  = EXCLUDED.device_id,
			updated_at = EXCLUDED.updated_at,
			changed_at = EXCLUDED.changed_at;`

	deleteRecord = `DELETE FROM sync_records
		WHERE user_id = $1 AND data_type = $2 AND record_id = $3;`

	// A record id is never live and tombstoned at the same time: every accepted
	// write removes the opposite row in the same transaction.
	upsertTombstone = `INSERT INTO tombstones (
			user_id,
			data_type,
			record_id,
			deleted_at,
			deleted_by_device_id,
			version,
			expires_at,
			changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, data_type, record_id)
		DO UPDATE SET
			deleted_at           = EXCLUDED.deleted_at,
			deleted_by_device_id = EXCLUDED.deleted_by_device_id,
			version              = EXCLUDED.version,
			expires_at           = EXCLUDED.expires_at,
			changed_at           = EXCLUDED.changed_at;`

	deleteTombstone = `DELETE FROM tombstones
		WHERE user_id = $1 AND data_type = $2 AND record_id = $3;`

	getTombstones = `SELECT data_type, record_id, deleted_at, deleted_by_device_id, version, expires_at
		FROM tombstones
		WHERE user_id = $1 AND data_type = $2 AND version > $3 AND expires_at > NOW();`

	// versionCursorAt resolves a wall-clock instant to the highest version
	// assigned at or before it, across live records and deletion markers.
	versionCursorAt = `SELECT COALESCE(GREATEST(
			(SELECT MAX(version) FROM sync_records WHERE user_id = $1 AND data_type = $2 AND changed_at <= $3),
			(SELECT MAX(version) FROM tombstones   WHERE user_id = $1 AND data_type = $2 AND changed_at <= $3)
		), 0);`

	purgeTombstones = `DELETE FROM tombstones
		WHERE expires_at <= $1;`

	getSnapshot = `SELECT data_type, encrypted_blob, nonce, checksum, version, last_sync_at
		FROM snapshots
		WHERE user_id = $1 AND data_type = $2;`

	saveSnapshot = `INSERT INTO snapshots (
			user_id,
			data_type,
			encrypted_blob,
			nonce,
			checksum,
			version,
			last_sync_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, data_type)
		DO UPDATE SET
			encrypted_blob = EXCLUDED.encrypted_blob,
			nonce          = EXCLUDED.nonce,
			checksum       = EXCLUDED.checksum,
			version        = EXCLUDED.version,
			last_sync_at   = EXCLUDED.last_sync_at;`

	registerDevice = `INSERT INTO devices (device_id, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id)
		DO UPDATE SET is_active = TRUE, platform = EXCLUDED.platform
		RETURNING device_id, user_id, platform, last_sync_at, is_active, created_at;`

	listDevices = `SELECT device_id, user_id, platform, last_sync_at, is_active, created_at
		FROM devices
		WHERE user_id = $1
		ORDER BY created_at;`

	deactivateDevice = `UPDATE devices
		SET is_active = FALSE
		WHERE user_id = $1 AND device_id = $2 AND is_active = TRUE;`

	revokeDeviceSessions = `UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND device_id = $2 AND revoked = FALSE;`

	touchDeviceLastSync = `UPDATE devices
		SET last_sync_at = $3
		WHERE user_id = $1 AND device_id = $2;`

	createSession = `INSERT INTO refresh_tokens (user_id, device_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, device_id, token_hash, expires_at, revoked, created_at;`

	findSessionByTokenHash = `SELECT id, user_id, device_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW();`

	revokeSession = `UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND id = $2 AND revoked = FALSE;`

	listSessions = `SELECT id, user_id, device_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC;`

	appendAuditEntry = `INSERT INTO sync_history (user_id, device_id, action, data_type, record_count, success, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildDeltaQuery returns the paginated SELECT for records changed after the
// given version checkpoint, ordered by version so pages are stable while new
// uploads land.
func buildDeltaQuery(userID int64, dataType models.DataType, sinceVersion int64, limit, offset int) (string, []any, error) {
	return psql.
		Select("user_id", "data_type", "record_id", "ciphertext", "nonce", "checksum", "version", "device_id", "updated_at").
		From("sync_records").
		Where(sq.Eq{"user_id": userID, "data_type": dataType.String()}).
		Where(sq.Gt{"version": sinceVersion}).
		OrderBy("version", "record_id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
}

// buildDeltaCountQuery returns the total number of records in the same delta
// window, for the pagination envelope.
func buildDeltaCountQuery(userID int64, dataType models.DataType, sinceVersion int64) (string, []any, error) {
	return psql.
		Select("COUNT(*)").
		From("sync_records").
		Where(sq.Eq{"user_id": userID, "data_type": dataType.String()}).
		Where(sq.Gt{"version": sinceVersion}).
		ToSql()
}

// buildAuditListQuery returns one page of the sync_history trail, newest first.
func buildAuditListQuery(userID int64, limit, offset int) (string, []any, error) {
	return psql.
		Select("id", "user_id", "device_id", "action", "data_type", "record_count", "success", "error_detail", "created_at").
		From("sync_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
}

// buildAuditCountQuery returns the total number of trail entries for the user.
func buildAuditCountQuery(userID int64) (string, []any, error) {
	return psql.
		Select("COUNT(*)").
		From("sync_history").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
}

// buildAuditExportQuery returns the whole trail in chronological order for
// CSV export.
func buildAuditExportQuery(userID int64) (string, []any, error) {
	return psql.
		Select("id", "user_id", "device_id", "action", "data_type", "record_count", "success", "error_detail", "created_at").
		From("sync_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at", "id").
		ToSql()
}
