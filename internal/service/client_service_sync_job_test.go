// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// stubSyncService lets scheduler tests script RunCycle without a server.
type stubSyncService struct {
	mu       sync.Mutex
	runs     int
	started  chan struct{}
	release  chan struct{}
	runErr   error
	lastTime time.Time
}

func (s *stubSyncService) RecordChange(context.Context, models.DataType, string, models.ChangeType, []byte) error {
	return nil
}

func (s *stubSyncService) RunCycle(context.Context) (models.SyncSummary, error) {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.runErr != nil {
		return models.SyncSummary{}, s.runErr
	}

	s.lastTime = time.Now().UTC()
	return models.SyncSummary{StartedAt: s.lastTime}, nil
}

func (s *stubSyncService) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func TestScheduler_SyncNowPersistsLastRun(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	stub := &stubSyncService{}

	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	summary, err := j.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.runCount())

	state, err := j.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.LastRun.Equal(summary.StartedAt), "a successful run must be recorded")
}

func TestScheduler_SyncNowIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	stub := &stubSyncService{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := j.SyncNow(ctx)
		done <- err
	}()

	<-stub.started
	_, err := j.SyncNow(ctx)
	require.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(stub.release)
	require.NoError(t, <-done)
}

func TestScheduler_SyncNowErrorLeavesLastRunUntouched(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	stub := &stubSyncService{runErr: ErrVaultLocked}

	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	_, err := j.SyncNow(ctx)
	require.ErrorIs(t, err, ErrVaultLocked)

	state, err := j.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.LastRun.IsZero())
}

func TestScheduler_StartDisabledIsANoOp(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	require.NoError(t, repos.SchedulerState.Save(ctx, models.SchedulerConfig{Enabled: false, Interval: time.Hour}))

	stub := &stubSyncService{}
	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	require.NoError(t, j.Start(ctx))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, stub.runCount())

	j.Stop() // idempotent when nothing runs
	j.Stop()
}

func TestScheduler_ManualRunWhileTickerArmed(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	require.NoError(t, repos.SchedulerState.Save(ctx, models.SchedulerConfig{Enabled: true, Interval: time.Hour}))

	stub := &stubSyncService{}
	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	require.NoError(t, j.Start(ctx))
	defer j.Stop()

	// The hour-long ticker will not fire during the test; manual runs still
	// work while the ticker is armed.
	_, err := j.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.runCount())
}

func TestScheduler_ReconfigureClampsAndPreservesLastRun(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	lastRun := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repos.SchedulerState.Save(ctx, models.SchedulerConfig{
		Enabled:  true,
		Interval: time.Hour,
		LastRun:  lastRun,
	}))

	stub := &stubSyncService{}
	j := NewSyncScheduler(stub, repos.SchedulerState, logger.Nop())

	require.NoError(t, j.Reconfigure(ctx, models.SchedulerConfig{Enabled: false, Interval: time.Second}))
	defer j.Stop()

	state, err := j.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.Equal(t, models.MinSyncInterval, state.Interval, "sub-minimum intervals are clamped")
	assert.True(t, state.LastRun.Equal(lastRun), "reconfiguration must not erase run history")
}

func TestScheduler_StateClampsOversizedInterval(t *testing.T) {
	ctx := context.Background()
	repos := newClientRepos(t)
	require.NoError(t, repos.SchedulerState.Save(ctx, models.SchedulerConfig{Enabled: true, Interval: 48 * time.Hour}))

	j := NewSyncScheduler(&stubSyncService{}, repos.SchedulerState, logger.Nop())

	state, err := j.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MaxSyncInterval, state.Interval)
}
