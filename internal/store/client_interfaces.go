// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// LocalRecord is one row of the agent's plaintext record mirror.
//
// Payload is the current local copy; Base is the last server-acknowledged
// copy and is what the three-way contact merge diffs against. Base is nil for
// records created locally and never yet synced.
type LocalRecord struct {
	DataType      models.DataType
	RecordID      string
	Payload       []byte
	Base          []byte
	ServerVersion int64
	UpdatedAt     time.Time
}

// ChangeLogRepository persists the append-only local change log.
type ChangeLogRepository interface {
	Append(ctx context.Context, entry models.ChangeLogEntry) (models.ChangeLogEntry, error)
	PendingChanges(ctx context.Context, dataType models.DataType) ([]models.ChangeLogEntry, error)
	MarkSynced(ctx context.Context, ids []int64, serverVersion int64) error
	PruneSynced(ctx context.Context, before time.Time) (int64, error)
}

// QueueRepository persists the offline upload queue.
type QueueRepository interface {
	Enqueue(ctx context.Context, item models.QueueItem) (models.QueueItem, error)
	Due(ctx context.Context, now time.Time) ([]models.QueueItem, error)
	Live(ctx context.Context) ([]models.QueueItem, error)
	MarkCompleted(ctx context.Context, id int64, now time.Time) error
	MarkFailed(ctx context.Context, id int64, lastError string, now time.Time) error
	Reschedule(ctx context.Context, id int64, attemptCount int, nextAttemptAt time.Time, lastError string, now time.Time) error
	Retry(ctx context.Context, id int64, now time.Time) error
	Stats(ctx context.Context) (models.QueueStats, error)
	ClearCompleted(ctx context.Context) (int64, error)
}

// RecordMirrorRepository persists the local plaintext record mirror and the
// per-data-type delta checkpoints.
type RecordMirrorRepository interface {
	Upsert(ctx context.Context, record LocalRecord) error
	Get(ctx context.Context, dataType models.DataType, recordID string) (LocalRecord, error)
	List(ctx context.Context, dataType models.DataType) ([]LocalRecord, error)
	Delete(ctx context.Context, dataType models.DataType, recordID string) error

	Checkpoint(ctx context.Context, dataType models.DataType) (int64, error)
	SetCheckpoint(ctx context.Context, dataType models.DataType, version int64) error
}

// SchedulerStateRepository persists the scheduler singleton across restarts.
type SchedulerStateRepository interface {
	Load(ctx context.Context) (models.SchedulerConfig, error)
	Save(ctx context.Context, cfg models.SchedulerConfig) error
}

// ClientRepositories bundles the agent-side repositories behind one
// constructor, mirroring [Repositories] on the server.
type ClientRepositories struct {
	ChangeLog      ChangeLogRepository
	Queue          QueueRepository
	Records        RecordMirrorRepository
	SchedulerState SchedulerStateRepository
}

// NewClientRepositories constructs all agent repositories over the local
// database.
func NewClientRepositories(db *ClientDB, log *logger.Logger) *ClientRepositories {
	return &ClientRepositories{
		ChangeLog:      NewChangeLogRepository(db, log),
		Queue:          NewQueueRepository(db, log),
		Records:        NewRecordMirrorRepository(db, log),
		SchedulerState: NewSchedulerStateRepository(db, log),
	}
}
