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

// schedulerStateRepository persists the scheduler singleton row.
type schedulerStateRepository struct {
	*ClientDB
	logger *logger.Logger
}

// NewSchedulerStateRepository constructs a [SchedulerStateRepository] over
// the agent database.
func NewSchedulerStateRepository(db *ClientDB, logger *logger.Logger) SchedulerStateRepository {
	return &schedulerStateRepository{
		ClientDB: db,
		logger:   logger,
	}
}

// Load returns the persisted schedule. When the row has never been written a
// disabled zero-value config is returned, not an error.
func (r *schedulerStateRepository) Load(ctx context.Context) (models.SchedulerConfig, error) {
	var (
		cfg             models.SchedulerConfig
		intervalSeconds int64
		lastRun         sql.NullTime
	)

	err := r.QueryRowContext(ctx, loadSchedulerState).Scan(&cfg.Enabled, &intervalSeconds, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SchedulerConfig{}, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "schedulerStateRepository.Load").
			Msg("failed to load scheduler state")
		return models.SchedulerConfig{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	cfg.Interval = time.Duration(intervalSeconds) * time.Second
	if lastRun.Valid {
		cfg.LastRun = lastRun.Time
	}

	return cfg, nil
}

// Save upserts the schedule row.
func (r *schedulerStateRepository) Save(ctx context.Context, cfg models.SchedulerConfig) error {
	var lastRun any
	if !cfg.LastRun.IsZero() {
		lastRun = cfg.LastRun
	}

	if _, err := r.ExecContext(ctx, saveSchedulerState, cfg.Enabled, int64(cfg.Interval/time.Second), lastRun); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "schedulerStateRepository.Save").
			Msg("failed to save scheduler state")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
