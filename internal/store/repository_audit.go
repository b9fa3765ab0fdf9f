// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// auditRepository is the PostgreSQL-backed implementation of
// [AuditRepository]. The sync_history table is append-only; nothing here
// updates or deletes rows.
type auditRepository struct {
	*DB
	logger *logger.Logger
}

// NewAuditRepository constructs an [AuditRepository] backed by the provided
// database connection and logger.
func NewAuditRepository(db *DB, logger *logger.Logger) AuditRepository {
	logger.Debug().Msg("creating audit repository")
	return &auditRepository{
		DB:     db,
		logger: logger,
	}
}

// Append writes one trail entry. Failures are reported but callers are
// expected to treat them as non-fatal: a sync exchange must not be rolled
// back because its audit row could not be written.
func (r *auditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	if _, err := r.DB.ExecContext(ctx, appendAuditEntry,
		entry.UserID,
		entry.DeviceID,
		string(entry.Action),
		entry.DataType.String(),
		entry.RecordCount,
		entry.Success,
		entry.ErrorDetail,
	); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "auditRepository.Append").
			Int64("user_id", entry.UserID).
			Str("action", string(entry.Action)).
			Msg("failed to append audit entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// List returns one page of the trail, newest first, with the pagination
// envelope filled from a separate count query.
func (r *auditRepository) List(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error) {
	log := logger.FromContext(ctx)

	countQuery, countArgs, err := buildAuditCountQuery(userID)
	if err != nil {
		return models.AuditPage{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		log.Err(err).
			Str("func", "auditRepository.List").
			Int64("user_id", userID).
			Msg("failed to count audit entries")
		return models.AuditPage{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	query, args, err := buildAuditListQuery(userID, limit, offset)
	if err != nil {
		return models.AuditPage{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entries, err := r.queryEntries(ctx, userID, query, args)
	if err != nil {
		return models.AuditPage{}, err
	}

	page := models.AuditPage{
		Entries: entries,
		Pagination: models.Pagination{
			TotalChanges: total,
			HasMore:      offset+len(entries) < total,
			NextOffset:   offset + len(entries),
		},
	}

	return page, nil
}

// ListAll returns the entire trail in chronological order. Used for export.
func (r *auditRepository) ListAll(ctx context.Context, userID int64) ([]models.AuditEntry, error) {
	query, args, err := buildAuditExportQuery(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.queryEntries(ctx, userID, query, args)
}

func (r *auditRepository) queryEntries(ctx context.Context, userID int64, query string, args []any) ([]models.AuditEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "auditRepository.queryEntries").
			Int64("user_id", userID).
			Msg("failed to execute audit query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, 32)

	for rows.Next() {
		var e models.AuditEntry

		scanErr := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.DeviceID,
			&e.Action,
			&e.DataType,
			&e.RecordCount,
			&e.Success,
			&e.ErrorDetail,
			&e.CreatedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "auditRepository.queryEntries").
				Int64("user_id", userID).
				Msg("failed to scan audit row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		entries = append(entries, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return entries, nil
}
