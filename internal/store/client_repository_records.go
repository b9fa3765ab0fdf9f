// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// recordMirrorRepository is the SQLite-backed implementation of
// [RecordMirrorRepository].
type recordMirrorRepository struct {
	*ClientDB
	logger *logger.Logger
}

// NewRecordMirrorRepository constructs a [RecordMirrorRepository] over the
// agent database.
func NewRecordMirrorRepository(db *ClientDB, logger *logger.Logger) RecordMirrorRepository {
	logger.Debug().Msg("creating record mirror repository")
	return &recordMirrorRepository{
		ClientDB: db,
		logger:   logger,
	}
}

// Upsert writes the record's current local copy, base copy and acknowledged
// server version.
func (r *recordMirrorRepository) Upsert(ctx context.Context, record LocalRecord) error {
	if _, err := r.ExecContext(ctx, upsertLocalRecord,
		record.DataType.String(),
		record.RecordID,
		record.Payload,
		record.Base,
		record.ServerVersion,
		record.UpdatedAt,
	); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordMirrorRepository.Upsert").
			Str("record_id", record.RecordID).
			Str("data_type", record.DataType.String()).
			Msg("failed to upsert local record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Get returns one mirrored record. Returns [ErrRecordNotFound] when the id
// is unknown locally.
func (r *recordMirrorRepository) Get(ctx context.Context, dataType models.DataType, recordID string) (LocalRecord, error) {
	var rec LocalRecord

	err := r.QueryRowContext(ctx, getLocalRecord, dataType.String(), recordID).
		Scan(&rec.DataType, &rec.RecordID, &rec.Payload, &rec.Base, &rec.ServerVersion, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LocalRecord{}, ErrRecordNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordMirrorRepository.Get").
			Str("record_id", recordID).
			Msg("failed to load local record")
		return LocalRecord{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return rec, nil
}

// List returns every mirrored record of the data type, ordered by record id.
func (r *recordMirrorRepository) List(ctx context.Context, dataType models.DataType) ([]LocalRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, listLocalRecords, dataType.String())
	if err != nil {
		log.Err(err).
			Str("func", "recordMirrorRepository.List").
			Str("data_type", dataType.String()).
			Msg("failed to list local records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]LocalRecord, 0, 32)

	for rows.Next() {
		var rec LocalRecord

		if scanErr := rows.Scan(&rec.DataType, &rec.RecordID, &rec.Payload, &rec.Base, &rec.ServerVersion, &rec.UpdatedAt); scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordMirrorRepository.List").
				Msg("failed to scan local record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

// Delete removes a mirrored record, typically after a tombstone is applied.
func (r *recordMirrorRepository) Delete(ctx context.Context, dataType models.DataType, recordID string) error {
	if _, err := r.ExecContext(ctx, deleteLocalRecord, dataType.String(), recordID); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordMirrorRepository.Delete").
			Str("record_id", recordID).
			Msg("failed to delete local record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Checkpoint returns the last fully applied server version for the data
// type, zero when the type has never synced.
func (r *recordMirrorRepository) Checkpoint(ctx context.Context, dataType models.DataType) (int64, error) {
	var version int64

	err := r.QueryRowContext(ctx, getCheckpoint, dataType.String()).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordMirrorRepository.Checkpoint").
			Str("data_type", dataType.String()).
			Msg("failed to load checkpoint")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return version, nil
}

// SetCheckpoint advances the delta checkpoint. Called only after every change
// of a page has been applied locally.
func (r *recordMirrorRepository) SetCheckpoint(ctx context.Context, dataType models.DataType, version int64) error {
	if _, err := r.ExecContext(ctx, setCheckpoint, dataType.String(), version); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordMirrorRepository.SetCheckpoint").
			Str("data_type", dataType.String()).
			Int64("version", version).
			Msg("failed to set checkpoint")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
