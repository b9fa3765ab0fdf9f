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

// queueRepository is the SQLite-backed implementation of [QueueRepository].
// Retry policy (which attempt gets which delay) lives in the service layer;
// this type only persists the decisions.
type queueRepository struct {
	*ClientDB
	logger *logger.Logger
}

// NewQueueRepository constructs a [QueueRepository] over the agent database.
func NewQueueRepository(db *ClientDB, logger *logger.Logger) QueueRepository {
	logger.Debug().Msg("creating offline queue repository")
	return &queueRepository{
		ClientDB: db,
		logger:   logger,
	}
}

// Enqueue stores a new pending item and returns it with the assigned id.
func (r *queueRepository) Enqueue(ctx context.Context, item models.QueueItem) (models.QueueItem, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	item.Status = models.QueuePending
	item.AttemptCount = 0
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := r.ExecContext(ctx, enqueueItem,
		item.DataType.String(),
		item.Payload,
		item.NextAttemptAt,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("data_type", item.DataType.String()).
			Msg("failed to enqueue item")
		return models.QueueItem{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	item.ID, err = res.LastInsertId()
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	log.Info().
		Str("func", "queueRepository.Enqueue").
		Int64("item_id", item.ID).
		Str("data_type", item.DataType.String()).
		Msg("queued upload for retry")

	return item, nil
}

// Due returns every pending item whose next attempt time has passed, in
// attempt order.
func (r *queueRepository) Due(ctx context.Context, now time.Time) ([]models.QueueItem, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, dueQueueItems, now)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Due").
			Msg("failed to query due items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.QueueItem, 0, 8)

	for rows.Next() {
		var item models.QueueItem

		scanErr := rows.Scan(
			&item.ID,
			&item.DataType,
			&item.Payload,
			&item.AttemptCount,
			&item.NextAttemptAt,
			&item.Status,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "queueRepository.Due").
				Msg("failed to scan queue row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

// Live returns every undelivered item, pending or failed, oldest first. The
// sync cycle uses it to know which changes are already queued.
func (r *queueRepository) Live(ctx context.Context) ([]models.QueueItem, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, liveQueueItems)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Live").
			Msg("failed to query live items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.QueueItem, 0, 8)

	for rows.Next() {
		var item models.QueueItem

		scanErr := rows.Scan(
			&item.ID,
			&item.DataType,
			&item.Payload,
			&item.AttemptCount,
			&item.NextAttemptAt,
			&item.Status,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

// MarkCompleted finalizes a delivered item.
func (r *queueRepository) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	if _, err := r.ExecContext(ctx, completeQueueItem, now, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.MarkCompleted").
			Int64("item_id", id).
			Msg("failed to mark item completed")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// MarkFailed retires an item that exhausted its attempts. Failed items are
// retained for inspection and manual retry, never silently dropped.
func (r *queueRepository) MarkFailed(ctx context.Context, id int64, lastError string, now time.Time) error {
	if _, err := r.ExecContext(ctx, failQueueItem, lastError, now, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.MarkFailed").
			Int64("item_id", id).
			Msg("failed to mark item failed")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Reschedule records a failed attempt and the computed next attempt time.
func (r *queueRepository) Reschedule(ctx context.Context, id int64, attemptCount int, nextAttemptAt time.Time, lastError string, now time.Time) error {
	if _, err := r.ExecContext(ctx, rescheduleQueueItem, attemptCount, nextAttemptAt, lastError, now, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.Reschedule").
			Int64("item_id", id).
			Msg("failed to reschedule item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Retry moves a failed item back to pending with a reset attempt counter and
// an immediate due time. A no-op for items in any other state.
func (r *queueRepository) Retry(ctx context.Context, id int64, now time.Time) error {
	if _, err := r.ExecContext(ctx, retryQueueItem, now, now, id); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.Retry").
			Int64("item_id", id).
			Msg("failed to retry item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// Stats returns the per-status item counts.
func (r *queueRepository) Stats(ctx context.Context) (models.QueueStats, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, queueStats)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Stats").
			Msg("failed to query queue stats")
		return models.QueueStats{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var stats models.QueueStats

	for rows.Next() {
		var status models.QueueStatus
		var count int

		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return models.QueueStats{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		switch status {
		case models.QueuePending:
			stats.Pending = count
		case models.QueueFailed:
			stats.Failed = count
		case models.QueueCompleted:
			stats.Completed = count
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return models.QueueStats{}, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return stats, nil
}

// ClearCompleted removes delivered items and returns the number removed.
func (r *queueRepository) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := r.ExecContext(ctx, clearCompletedQueueItems)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.ClearCompleted").
			Msg("failed to clear completed items")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return cleared, nil
}
