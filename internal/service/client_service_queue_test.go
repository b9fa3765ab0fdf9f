// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/mock"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// newClientRepos opens a throwaway in-memory agent database.
func newClientRepos(t *testing.T) *store.ClientRepositories {
	t.Helper()

	db, err := store.NewConnectSQLite(context.Background(), config.ClientStorage{SQLitePath: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return store.NewClientRepositories(db, logger.Nop())
}

func testUploadRequest(changes ...models.Change) models.UploadRequest {
	return models.UploadRequest{
		DataType:        models.DataTypeContacts,
		DeviceID:        "device-a",
		ClientTimestamp: time.Now().UTC(),
		Changes:         changes,
	}
}

// ── Drain ──

func TestQueueService_Drain_DeliversAndMarksChangesSynced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	entry, err := repos.ChangeLog.Append(ctx, models.ChangeLogEntry{
		DataType:        models.DataTypeContacts,
		RecordID:        "c1",
		Type:            models.ChangeInsert,
		Payload:         []byte(`{"id":"c1"}`),
		DeviceID:        "device-a",
		ClientTimestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().
		Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{Version: 42, ProcessedCount: 1}, nil)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())

	req := testUploadRequest(models.Change{RecordID: "c1", Type: models.ChangeInsert, EncryptedRecord: "Yw==", Nonce: "bg==", Checksum: "ff"})
	require.NoError(t, q.Enqueue(ctx, req, map[string][]int64{"c1": {entry.ID}}))

	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	pending, err := repos.ChangeLog.PendingChanges(ctx, models.DataTypeContacts)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered changes must be marked synced")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Completed: 1}, stats)
}

func TestQueueService_Drain_ConflictedRecordStaysPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	appendEntry := func(recordID string) models.ChangeLogEntry {
		entry, err := repos.ChangeLog.Append(ctx, models.ChangeLogEntry{
			DataType:        models.DataTypeContacts,
			RecordID:        recordID,
			Type:            models.ChangeUpdate,
			Payload:         []byte(`{"id":"` + recordID + `"}`),
			DeviceID:        "device-a",
			ClientTimestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
		return entry
	}
	conflictedEntry := appendEntry("c1")
	acceptedEntry := appendEntry("c2")

	// While the item waited, another device won c1: the server reports a
	// conflict for it and accepts only c2.
	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().
		Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{
			Version:        17,
			ProcessedCount: 1,
			Conflicts:      []models.ConflictInfo{{DataType: models.DataTypeContacts, RecordID: "c1"}},
		}, nil)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	req := testUploadRequest(
		models.Change{RecordID: "c1", Type: models.ChangeUpdate, EncryptedRecord: "YQ==", Nonce: "bg==", Checksum: "aa"},
		models.Change{RecordID: "c2", Type: models.ChangeUpdate, EncryptedRecord: "Yg==", Nonce: "bg==", Checksum: "bb"},
	)
	require.NoError(t, q.Enqueue(ctx, req, map[string][]int64{
		"c1": {conflictedEntry.ID},
		"c2": {acceptedEntry.ID},
	}))

	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Completed: 1}, stats)

	// c1's edit must survive for the resolver; only c2 is synced.
	pending, err := repos.ChangeLog.PendingChanges(ctx, models.DataTypeContacts)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, conflictedEntry.ID, pending[0].ID)
	assert.Equal(t, "c1", pending[0].RecordID)
}

func TestQueueService_Drain_RetryableFailureReschedules(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().
		Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{}, adapter.ErrServerUnavailable)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{BackoffBase: time.Minute}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), map[string][]int64{"c1": {1}}))

	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	// Still pending, but pushed into the future: nothing is due right now.
	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Pending: 1}, stats)

	due, err := repos.Queue.Due(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due)

	// The backoff is base±20%; well before one minute it must still be parked,
	// and by base+20% it must be due again.
	due, err = repos.Queue.Due(ctx, time.Now().UTC().Add(72*time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].AttemptCount)
	assert.Contains(t, due[0].LastError, adapter.ErrServerUnavailable.Error())
}

func TestQueueService_Drain_NonRetryableFailureRetiresItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().
		Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{}, adapter.ErrBadRequest)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), nil))

	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Failed: 1}, stats)
}

func TestQueueService_Drain_ExhaustedAttemptsRetireItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().
		Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{}, adapter.ErrRateLimited).
		Times(2)

	// Two attempts total: the second failure retires the item.
	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{
		BackoffBase: time.Nanosecond,
		MaxAttempts: 2,
	}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), nil))

	_, err := q.Drain(ctx)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond) // let the nanosecond backoff elapse
	_, err = q.Drain(ctx)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Failed: 1}, stats)
}

func TestQueueService_Drain_CorruptPayloadIsRetired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	_, err := repos.Queue.Enqueue(ctx, models.QueueItem{
		DataType:      models.DataTypeContacts,
		Payload:       []byte("not json"),
		NextAttemptAt: time.Now().UTC().Add(-time.Second),
	})
	require.NoError(t, err)

	serverAdapter := mock.NewMockServerAdapter(ctrl) // Upload must never be called

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Failed: 1}, stats)
}

// ── bookkeeping ──

func TestQueueService_QueuedChangeIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)
	serverAdapter := mock.NewMockServerAdapter(ctrl)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), map[string][]int64{"c1": {3, 7}}))
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), map[string][]int64{"c2": {9}}))

	ids, err := q.QueuedChangeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{3: true, 7: true, 9: true}, ids)
}

func TestQueueService_RetryRevivesFailedItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	gomock.InOrder(
		serverAdapter.EXPECT().
			Upload(gomock.Any(), gomock.Any()).
			Return(models.UploadResponse{}, adapter.ErrBadRequest),
		serverAdapter.EXPECT().
			Upload(gomock.Any(), gomock.Any()).
			Return(models.UploadResponse{Version: 5}, nil),
	)

	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, testUploadRequest(), nil))

	_, err := q.Drain(ctx)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)

	live, err := repos.Queue.Live(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)

	require.NoError(t, q.Retry(ctx, live[0].ID))
	delivered, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	removed, err := q.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestQueueService_EnqueuePreservesRequestBytes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repos := newClientRepos(t)
	serverAdapter := mock.NewMockServerAdapter(ctrl)

	req := testUploadRequest(models.Change{RecordID: "c9", Type: models.ChangeDelete})
	q := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, config.Queue{}, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, req, map[string][]int64{"c9": {11}}))

	live, err := repos.Queue.Live(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)

	var stored queuedUpload
	require.NoError(t, json.Unmarshal(live[0].Payload, &stored))
	assert.Equal(t, req.DataType, stored.Request.DataType)
	assert.Equal(t, "c9", stored.Request.Changes[0].RecordID)
	assert.Equal(t, map[string][]int64{"c9": {11}}, stored.ChangeIDs)
}
