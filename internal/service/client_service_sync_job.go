// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// syncScheduler is the concrete implementation of [SyncScheduler]. The
// schedule is persisted so it survives restarts; inFlight guarantees a ticker
// fire and a manual SyncNow never run a cycle concurrently.
type syncScheduler struct {
	syncService ClientSyncService
	state       store.SchedulerStateRepository

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	inFlight atomic.Bool

	logger *logger.Logger
}

// NewSyncScheduler constructs an idle [SyncScheduler]; nothing runs until
// Start.
func NewSyncScheduler(syncService ClientSyncService, state store.SchedulerStateRepository, logger *logger.Logger) SyncScheduler {
	return &syncScheduler{
		syncService: syncService,
		state:       state,
		logger:      logger,
	}
}

// Start implements [SyncScheduler].
func (j *syncScheduler) Start(ctx context.Context) error {
	cfg, err := j.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load scheduler state: %w", err)
	}
	cfg = cfg.ClampInterval()

	j.Stop()

	if !cfg.Enabled {
		j.logger.Info().Str("func", "syncScheduler.Start").Msg("scheduler disabled, not starting")
		return nil
	}

	j.run(ctx, cfg.Interval)
	return nil
}

// run launches the ticker goroutine. Callers must have stopped any previous
// one.
func (j *syncScheduler) run(ctx context.Context, interval time.Duration) {
	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	j.logger.Info().
		Str("func", "syncScheduler.run").
		Dur("interval", interval).
		Msg("scheduler started")

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				if _, err := j.SyncNow(jobCtx); err != nil {
					// ErrSyncAlreadyRunning and ErrVaultLocked are expected
					// between unlocks; anything else is worth a warning.
					j.logger.Warn().Err(err).
						Str("func", "syncScheduler.run").
						Msg("unattended sync run failed")
				}
			}
		}
	}()
}

// Stop implements [SyncScheduler]. Safe to call when idle.
func (j *syncScheduler) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// Reconfigure implements [SyncScheduler].
func (j *syncScheduler) Reconfigure(ctx context.Context, cfg models.SchedulerConfig) error {
	current, err := j.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load scheduler state: %w", err)
	}

	cfg = cfg.ClampInterval()
	cfg.LastRun = current.LastRun

	if err := j.state.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}

	j.Stop()
	if cfg.Enabled {
		j.run(ctx, cfg.Interval)
	}

	j.logger.Info().
		Str("func", "syncScheduler.Reconfigure").
		Bool("enabled", cfg.Enabled).
		Dur("interval", cfg.Interval).
		Msg("schedule updated")

	return nil
}

// SyncNow implements [SyncScheduler].
func (j *syncScheduler) SyncNow(ctx context.Context) (models.SyncSummary, error) {
	if !j.inFlight.CompareAndSwap(false, true) {
		return models.SyncSummary{}, ErrSyncAlreadyRunning
	}
	defer j.inFlight.Store(false)

	summary, err := j.syncService.RunCycle(ctx)
	if err != nil {
		return summary, err
	}

	if cfg, loadErr := j.state.Load(ctx); loadErr == nil {
		cfg.LastRun = summary.StartedAt
		if saveErr := j.state.Save(ctx, cfg); saveErr != nil {
			j.logger.Warn().Err(saveErr).Msg("failed to persist last run time")
		}
	}

	return summary, nil
}

// State implements [SyncScheduler].
func (j *syncScheduler) State(ctx context.Context) (models.SchedulerConfig, error) {
	cfg, err := j.state.Load(ctx)
	if err != nil {
		return models.SchedulerConfig{}, fmt.Errorf("load scheduler state: %w", err)
	}
	return cfg.ClampInterval(), nil
}
