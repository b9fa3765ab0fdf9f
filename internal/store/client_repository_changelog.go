// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// changeLogRepository is the SQLite-backed implementation of
// [ChangeLogRepository]. Entries are append-only: nothing here ever rewrites
// a captured mutation, only the synced flag and the acknowledged version.
type changeLogRepository struct {
	*ClientDB
	logger *logger.Logger
}

// NewChangeLogRepository constructs a [ChangeLogRepository] over the agent
// database.
func NewChangeLogRepository(db *ClientDB, logger *logger.Logger) ChangeLogRepository {
	logger.Debug().Msg("creating change log repository")
	return &changeLogRepository{
		ClientDB: db,
		logger:   logger,
	}
}

// Append captures one local mutation and returns it with the assigned row id.
func (r *changeLogRepository) Append(ctx context.Context, entry models.ChangeLogEntry) (models.ChangeLogEntry, error) {
	log := logger.FromContext(ctx)

	res, err := r.ExecContext(ctx, appendChangeLogEntry,
		entry.DataType.String(),
		entry.RecordID,
		string(entry.Type),
		entry.Payload,
		entry.DeviceID,
		entry.ClientTimestamp,
	)
	if err != nil {
		log.Err(err).
			Str("func", "changeLogRepository.Append").
			Str("record_id", entry.RecordID).
			Str("data_type", entry.DataType.String()).
			Msg("failed to append change log entry")
		return models.ChangeLogEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return models.ChangeLogEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return entry, nil
}

// PendingChanges returns every unsynced entry for the data type, oldest
// first, so upload batches preserve local mutation order.
func (r *changeLogRepository) PendingChanges(ctx context.Context, dataType models.DataType) ([]models.ChangeLogEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, pendingChangeLogEntries, dataType.String())
	if err != nil {
		log.Err(err).
			Str("func", "changeLogRepository.PendingChanges").
			Str("data_type", dataType.String()).
			Msg("failed to query pending changes")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.ChangeLogEntry, 0, 16)

	for rows.Next() {
		var e models.ChangeLogEntry

		scanErr := rows.Scan(
			&e.ID,
			&e.DataType,
			&e.RecordID,
			&e.Type,
			&e.Payload,
			&e.DeviceID,
			&e.ClientTimestamp,
			&e.ServerVersion,
			&e.Synced,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "changeLogRepository.PendingChanges").
				Msg("failed to scan change log row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		entries = append(entries, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return entries, nil
}

// MarkSynced flags the given entries as acknowledged and stamps them with the
// version the server assigned to the batch. Runs in one transaction so a
// partially acknowledged batch is never persisted.
func (r *changeLogRepository) MarkSynced(ctx context.Context, ids []int64, serverVersion int64) error {
	log := logger.FromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "changeLogRepository.MarkSynced").
			Int("count", len(ids)).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, markChangeLogSynced, serverVersion, id); err != nil {
			log.Err(err).
				Str("func", "changeLogRepository.MarkSynced").
				Int64("entry_id", id).
				Msg("failed to mark entry synced")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	return nil
}

// PruneSynced removes acknowledged entries older than the given moment and
// returns the number removed. Pending entries are never pruned.
func (r *changeLogRepository) PruneSynced(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.ExecContext(ctx, pruneSyncedChangeLog, before)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeLogRepository.PruneSynced").
			Msg("failed to prune change log")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return pruned, nil
}
