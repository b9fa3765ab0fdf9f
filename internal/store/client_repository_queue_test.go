// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"testing"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func newTestClientDB(t *testing.T) *ClientDB {
	t.Helper()

	db, err := NewConnectSQLite(context.Background(), config.ClientStorage{SQLitePath: ":memory:"}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open in-memory agent database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestQueueRepository_EnqueueAndDue(t *testing.T) {
	db := newTestClientDB(t)
	repo := NewQueueRepository(db, logger.Nop())
	ctx := context.Background()

	now := time.Now().UTC()

	ready, err := repo.Enqueue(ctx, models.QueueItem{
		DataType:      models.DataTypeContacts,
		Payload:       []byte(`{"data_type":"contacts"}`),
		NextAttemptAt: now.Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if ready.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if ready.Status != models.QueuePending {
		t.Errorf("expected pending status, got %s", ready.Status)
	}

	// second item not due yet
	if _, err := repo.Enqueue(ctx, models.QueueItem{
		DataType:      models.DataTypeAccounts,
		Payload:       []byte(`{"data_type":"accounts"}`),
		NextAttemptAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := repo.Due(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due item, got %d", len(due))
	}
	if due[0].ID != ready.ID {
		t.Errorf("expected item %d due, got %d", ready.ID, due[0].ID)
	}
	if string(due[0].Payload) != `{"data_type":"contacts"}` {
		t.Errorf("payload round-trip mismatch: %s", due[0].Payload)
	}
}

func TestQueueRepository_Lifecycle(t *testing.T) {
	db := newTestClientDB(t)
	repo := NewQueueRepository(db, logger.Nop())
	ctx := context.Background()

	now := time.Now().UTC()

	item, err := repo.Enqueue(ctx, models.QueueItem{
		DataType:      models.DataTypeContacts,
		Payload:       []byte(`{}`),
		NextAttemptAt: now,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// attempt fails, rescheduled with bumped counter
	next := now.Add(30 * time.Second)
	if err := repo.Reschedule(ctx, item.ID, 1, next, "connection refused", now); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	due, err := repo.Due(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("rescheduled item must not be due before its next attempt, got %d", len(due))
	}

	due, err = repo.Due(ctx, next)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].AttemptCount != 1 || due[0].LastError != "connection refused" {
		t.Fatalf("unexpected rescheduled item: %+v", due)
	}

	// attempts exhausted → failed, retained
	if err := repo.MarkFailed(ctx, item.ID, "gave up", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Failed != 1 || stats.Pending != 0 {
		t.Errorf("expected 1 failed item, got %+v", stats)
	}

	// manual retry → pending again, counter reset, immediately due
	if err := repo.Retry(ctx, item.ID, now); err != nil {
		t.Fatalf("retry: %v", err)
	}

	due, err = repo.Due(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].AttemptCount != 0 {
		t.Fatalf("retried item must be pending with reset attempts: %+v", due)
	}

	// delivery succeeds
	if err := repo.MarkCompleted(ctx, item.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	stats, err = repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Completed != 1 || stats.Total() != 1 {
		t.Errorf("expected 1 completed item, got %+v", stats)
	}

	cleared, err := repo.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("expected 1 cleared item, got %d", cleared)
	}
}

func TestQueueRepository_RetryIgnoresNonFailedItems(t *testing.T) {
	db := newTestClientDB(t)
	repo := NewQueueRepository(db, logger.Nop())
	ctx := context.Background()

	now := time.Now().UTC()

	item, err := repo.Enqueue(ctx, models.QueueItem{
		DataType:      models.DataTypeContacts,
		Payload:       []byte(`{}`),
		NextAttemptAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// pending, not failed → retry must not make it due
	if err := repo.Retry(ctx, item.ID, now); err != nil {
		t.Fatalf("retry: %v", err)
	}

	due, err := repo.Due(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("retry of a pending item must be a no-op, got %d due", len(due))
	}
}
