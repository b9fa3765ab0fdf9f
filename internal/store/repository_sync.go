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

// tombstoneRetention is how long an accepted deletion stays visible to other
// devices before the marker becomes purgeable.
const tombstoneRetention = 30 * 24 * time.Hour

// syncRepository is the PostgreSQL-backed implementation of [SyncRepository].
// It owns the sync_records, tombstones, sync_state and snapshots tables.
type syncRepository struct {
	*DB
	logger *logger.Logger
}

// NewSyncRepository constructs a [SyncRepository] backed by the provided
// database connection and logger.
func NewSyncRepository(db *DB, logger *logger.Logger) SyncRepository {
	logger.Debug().Msg("creating sync repository")
	return &syncRepository{
		DB:     db,
		logger: logger,
	}
}

// ApplyChanges processes one upload batch inside a single transaction.
//
// The version counter row in sync_state is locked first, so concurrent
// uploads for the same (user, data_type) serialize here and every accepted
// batch observes a consistent stored state. Each change is then compared
// against the stored record (or tombstone) under FOR UPDATE:
//
//   - No stored row → the change is accepted.
//   - Stored row and the incoming batch timestamp is strictly newer than the
//     stored change timestamp → accepted.
//   - Otherwise → reported in [models.UploadResponse.Conflicts]; the batch
//     continues. Conflicts are outcomes, not errors.
//   - Override set → accepted without comparison (terminal manual resolution).
//
// Accepted inserts/updates remove any tombstone for the record id; accepted
// deletes remove the live record and write a tombstone. A record id therefore
// never exists on both sides at once.
//
// All accepted changes in the batch share one freshly assigned version;
// sync_state is bumped only when at least one change was accepted.
func (r *syncRepository) ApplyChanges(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.ApplyChanges").
			Int64("user_id", userID).
			Msg("failed to begin transaction")
		return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	var currentVersion int64
	if err := tx.QueryRowContext(ctx, lockSyncState, userID, req.DataType.String()).Scan(&currentVersion); err != nil {
		log.Err(err).
			Str("func", "syncRepository.ApplyChanges").
			Int64("user_id", userID).
			Str("data_type", req.DataType.String()).
			Msg("failed to lock version counter")
		return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	nextVersion := currentVersion + 1
	now := time.Now().UTC()

	var resp models.UploadResponse

	for idx, change := range req.Changes {
		conflict, applyErr := r.applyChange(ctx, tx, userID, req, change, currentVersion, nextVersion, now)
		if applyErr != nil {
			log.Err(applyErr).
				Str("func", "syncRepository.ApplyChanges").
				Int("iteration", idx+1).
				Str("record_id", change.RecordID).
				Msg("failed to apply change")
			return models.UploadResponse{}, applyErr
		}

		if conflict != nil {
			resp.Conflicts = append(resp.Conflicts, *conflict)
			continue
		}

		resp.ProcessedCount++
	}

	resp.Version = currentVersion
	if resp.ProcessedCount > 0 {
		if _, err := tx.ExecContext(ctx, setSyncState, userID, req.DataType.String(), nextVersion); err != nil {
			log.Err(err).
				Str("func", "syncRepository.ApplyChanges").
				Int64("user_id", userID).
				Msg("failed to advance version counter")
			return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		resp.Version = nextVersion
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "syncRepository.ApplyChanges").
			Int64("user_id", userID).
			Msg("failed to commit transaction")
		return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "syncRepository.ApplyChanges").
		Int64("user_id", userID).
		Str("data_type", req.DataType.String()).
		Int("processed", resp.ProcessedCount).
		Int("conflicts", len(resp.Conflicts)).
		Int64("version", resp.Version).
		Msg("applied upload batch")

	return resp, nil
}

// applyChange handles one change under the open transaction. It returns a
// non-nil [models.ConflictInfo] when the change is rejected by the timestamp
// comparison, and an error only for storage failures.
func (r *syncRepository) applyChange(ctx context.Context, tx *sql.Tx, userID int64, req models.UploadRequest, change models.Change, currentVersion, nextVersion int64, now time.Time) (*models.ConflictInfo, error) {
	var stored models.SyncRecord
	storedExists := true

	err := tx.QueryRowContext(ctx, getRecordForUpdate, userID, req.DataType.String(), change.RecordID).
		Scan(&stored.Ciphertext, &stored.Nonce, &stored.Checksum, &stored.Version, &stored.DeviceID, &stored.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		storedExists = false
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	// A live record and a tombstone are mutually exclusive, so the tombstone
	// is only consulted when no record row exists.
	var tomb models.Tombstone
	tombExists := false
	if !storedExists {
		err = tx.QueryRowContext(ctx, getTombstoneForUpdate, userID, req.DataType.String(), change.RecordID).
			Scan(&tomb.DeletedAt, &tomb.DeletedByDeviceID, &tomb.ExpiresAt)
		if err == nil {
			tombExists = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	if !change.Override {
		var serverTimestamp time.Time
		var serverVersion int64
		contested := false

		switch {
		case storedExists:
			serverTimestamp = stored.UpdatedAt
			serverVersion = stored.Version
			contested = true
		case tombExists:
			serverTimestamp = tomb.DeletedAt
			serverVersion = currentVersion
			contested = true
		}

		if contested && !req.ClientTimestamp.After(serverTimestamp) {
			return &models.ConflictInfo{
				DataType:        req.DataType,
				RecordID:        change.RecordID,
				ServerVersion:   serverVersion,
				LocalTimestamp:  req.ClientTimestamp,
				ServerTimestamp: serverTimestamp,
			}, nil
		}
	}

	switch change.Type {
	case models.ChangeInsert, models.ChangeUpdate:
		if _, err := tx.ExecContext(ctx, upsertRecord,
			userID,
			req.DataType.String(),
			change.RecordID,
			change.EncryptedRecord,
			change.Nonce,
			change.Checksum,
			nextVersion,
			req.DeviceID,
			req.ClientTimestamp,
			now,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		if tombExists {
			if _, err := tx.ExecContext(ctx, deleteTombstone, userID, req.DataType.String(), change.RecordID); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

	case models.ChangeDelete:
		if storedExists {
			if _, err := tx.ExecContext(ctx, deleteRecord, userID, req.DataType.String(), change.RecordID); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		if _, err := tx.ExecContext(ctx, upsertTombstone,
			userID,
			req.DataType.String(),
			change.RecordID,
			req.ClientTimestamp,
			req.DeviceID,
			nextVersion,
			now.Add(tombstoneRetention),
			now,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil, nil
}

// GetChangesSince returns one page of records changed after sinceVersion,
// together with the total number of records in the window.
func (r *syncRepository) GetChangesSince(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64, limit, offset int) ([]models.SyncRecord, int, error) {
	log := logger.FromContext(ctx)

	countQuery, countArgs, err := buildDeltaCountQuery(userID, dataType, sinceVersion)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetChangesSince").
			Int64("user_id", userID).
			Msg("failed to count delta window")
		return nil, 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	query, args, err := buildDeltaQuery(userID, dataType, sinceVersion, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetChangesSince").
			Int64("user_id", userID).
			Int64("since_version", sinceVersion).
			Msg("failed to execute delta query")
		return nil, 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.SyncRecord, 0, limit)

	for rows.Next() {
		var rec models.SyncRecord

		scanErr := rows.Scan(
			&rec.UserID,
			&rec.DataType,
			&rec.RecordID,
			&rec.Ciphertext,
			&rec.Nonce,
			&rec.Checksum,
			&rec.Version,
			&rec.DeviceID,
			&rec.UpdatedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "syncRepository.GetChangesSince").
				Int64("user_id", userID).
				Msg("failed to scan sync record row")
			return nil, 0, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "syncRepository.GetChangesSince").
			Int64("user_id", userID).
			Msg("error occurred during rows iteration")
		return nil, 0, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, total, nil
}

// GetTombstones returns the unexpired deletion markers accepted after
// sinceVersion, so a delta window carries only the deletes it covers.
func (r *syncRepository) GetTombstones(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64) ([]models.Tombstone, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getTombstones, userID, dataType.String(), sinceVersion)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetTombstones").
			Int64("user_id", userID).
			Msg("failed to execute tombstone query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	tombstones := make([]models.Tombstone, 0, 16)

	for rows.Next() {
		var t models.Tombstone

		if scanErr := rows.Scan(&t.DataType, &t.RecordID, &t.DeletedAt, &t.DeletedByDeviceID, &t.Version, &t.ExpiresAt); scanErr != nil {
			log.Err(scanErr).
				Str("func", "syncRepository.GetTombstones").
				Int64("user_id", userID).
				Msg("failed to scan tombstone row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		tombstones = append(tombstones, t)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return tombstones, nil
}

// VersionCursorAt resolves a wall-clock instant (server clock) to the highest
// version assigned at or before it. A delta from that cursor covers exactly
// the writes the server accepted after the instant.
func (r *syncRepository) VersionCursorAt(ctx context.Context, userID int64, dataType models.DataType, at time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	var cursor int64
	if err := r.DB.QueryRowContext(ctx, versionCursorAt, userID, dataType.String(), at).Scan(&cursor); err != nil {
		log.Err(err).
			Str("func", "syncRepository.VersionCursorAt").
			Int64("user_id", userID).
			Str("data_type", dataType.String()).
			Time("at", at).
			Msg("failed to resolve version cursor")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return cursor, nil
}

// PurgeExpiredTombstones removes every deletion marker whose retention window
// ended at or before now, across all users. Returns the number purged.
func (r *syncRepository) PurgeExpiredTombstones(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, purgeTombstones, now)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.PurgeExpiredTombstones").
			Msg("failed to purge tombstones")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if purged > 0 {
		log.Info().
			Str("func", "syncRepository.PurgeExpiredTombstones").
			Int64("purged", purged).
			Msg("purged expired tombstones")
	}

	return purged, nil
}

// GetSnapshot returns the stored full-vault blob for the data type.
// Returns [ErrSnapshotNotFound] when the user has never uploaded one.
func (r *syncRepository) GetSnapshot(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error) {
	log := logger.FromContext(ctx)

	var snap models.SnapshotPayload
	err := r.DB.QueryRowContext(ctx, getSnapshot, userID, dataType.String()).
		Scan(&snap.DataType, &snap.EncryptedBlob, &snap.Nonce, &snap.Checksum, &snap.Version, &snap.LastSyncAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SnapshotPayload{}, ErrSnapshotNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetSnapshot").
			Int64("user_id", userID).
			Str("data_type", dataType.String()).
			Msg("failed to load snapshot")
		return models.SnapshotPayload{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return snap, nil
}

// SaveSnapshot upserts the full-vault blob for the data type.
func (r *syncRepository) SaveSnapshot(ctx context.Context, userID int64, snapshot models.SnapshotPayload) error {
	log := logger.FromContext(ctx)

	lastSyncAt := time.Now().UTC()
	if snapshot.LastSyncAt != nil {
		lastSyncAt = *snapshot.LastSyncAt
	}

	if _, err := r.DB.ExecContext(ctx, saveSnapshot,
		userID,
		snapshot.DataType.String(),
		snapshot.EncryptedBlob,
		snapshot.Nonce,
		snapshot.Checksum,
		snapshot.Version,
		lastSyncAt,
	); err != nil {
		log.Err(err).
			Str("func", "syncRepository.SaveSnapshot").
			Int64("user_id", userID).
			Str("data_type", snapshot.DataType.String()).
			Msg("failed to save snapshot")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
