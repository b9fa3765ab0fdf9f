// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func newTestSyncRepo(t *testing.T) (*syncRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &syncRepository{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestApplyChanges_InsertIntoEmptyState(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	req := models.UploadRequest{
		DataType:        models.DataTypeContacts,
		DeviceID:        "device-a",
		ClientTimestamp: time.Now().UTC(),
		Changes: []models.Change{{
			RecordID:        "c1",
			Type:            models.ChangeInsert,
			EncryptedRecord: "Y2lwaGVy",
			Nonce:           "bm9uY2U=",
			Checksum:        "abc123",
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_state").
		WithArgs(int64(1), "contacts").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(4))
	mock.ExpectQuery("SELECT ciphertext, nonce, checksum, version, device_id, updated_at").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT deleted_at, deleted_by_device_id, expires_at").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO sync_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_state").
		WithArgs(int64(1), "contacts", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := repo.ApplyChanges(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 5 {
		t.Errorf("expected version 5, got %d", resp.Version)
	}
	if resp.ProcessedCount != 1 {
		t.Errorf("expected 1 processed change, got %d", resp.ProcessedCount)
	}
	if len(resp.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %d", len(resp.Conflicts))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplyChanges_StaleTimestampReportsConflict(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	serverTime := time.Now().UTC()
	staleTime := serverTime.Add(-time.Hour)

	req := models.UploadRequest{
		DataType:        models.DataTypeContacts,
		DeviceID:        "device-a",
		ClientTimestamp: staleTime,
		Changes: []models.Change{{
			RecordID:        "c1",
			Type:            models.ChangeUpdate,
			EncryptedRecord: "Y2lwaGVy",
			Nonce:           "bm9uY2U=",
			Checksum:        "abc123",
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_state").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(9))
	mock.ExpectQuery("SELECT ciphertext, nonce, checksum, version, device_id, updated_at").
		WillReturnRows(sqlmock.
			NewRows([]string{"ciphertext", "nonce", "checksum", "version", "device_id", "updated_at"}).
			AddRow("b3RoZXI=", "bg==", "def456", 9, "device-b", serverTime))
	// conflict → no writes, no version bump
	mock.ExpectCommit()

	resp, err := repo.ApplyChanges(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 9 {
		t.Errorf("version must not advance on an all-conflict batch, got %d", resp.Version)
	}
	if resp.ProcessedCount != 0 {
		t.Errorf("expected 0 processed changes, got %d", resp.ProcessedCount)
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(resp.Conflicts))
	}

	conflict := resp.Conflicts[0]
	if conflict.RecordID != "c1" {
		t.Errorf("conflict carries wrong record id: %s", conflict.RecordID)
	}
	if conflict.ServerVersion != 9 {
		t.Errorf("expected server version 9, got %d", conflict.ServerVersion)
	}
	if !conflict.ServerTimestamp.Equal(serverTime) {
		t.Errorf("expected server timestamp %v, got %v", serverTime, conflict.ServerTimestamp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplyChanges_OverrideSkipsComparison(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	serverTime := time.Now().UTC()

	req := models.UploadRequest{
		DataType:        models.DataTypeContacts,
		DeviceID:        "device-a",
		ClientTimestamp: serverTime.Add(-time.Hour), // older, would normally conflict
		Changes: []models.Change{{
			RecordID:        "c1",
			Type:            models.ChangeUpdate,
			EncryptedRecord: "Y2lwaGVy",
			Nonce:           "bm9uY2U=",
			Checksum:        "abc123",
			Override:        true,
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_state").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(9))
	mock.ExpectQuery("SELECT ciphertext, nonce, checksum, version, device_id, updated_at").
		WillReturnRows(sqlmock.
			NewRows([]string{"ciphertext", "nonce", "checksum", "version", "device_id", "updated_at"}).
			AddRow("b3RoZXI=", "bg==", "def456", 9, "device-b", serverTime))
	mock.ExpectExec("INSERT INTO sync_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_state").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := repo.ApplyChanges(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProcessedCount != 1 || len(resp.Conflicts) != 0 {
		t.Errorf("override change must be applied without conflict: processed=%d conflicts=%d",
			resp.ProcessedCount, len(resp.Conflicts))
	}
	if resp.Version != 10 {
		t.Errorf("expected version 10, got %d", resp.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplyChanges_DeleteWritesTombstone(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	serverTime := time.Now().UTC().Add(-time.Hour)

	req := models.UploadRequest{
		DataType:        models.DataTypeAccounts,
		DeviceID:        "device-a",
		ClientTimestamp: time.Now().UTC(),
		Changes: []models.Change{{
			RecordID: "a1",
			Type:     models.ChangeDelete,
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_state").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(2))
	mock.ExpectQuery("SELECT ciphertext, nonce, checksum, version, device_id, updated_at").
		WillReturnRows(sqlmock.
			NewRows([]string{"ciphertext", "nonce", "checksum", "version", "device_id", "updated_at"}).
			AddRow("b3RoZXI=", "bg==", "def456", 2, "device-b", serverTime))
	mock.ExpectExec("DELETE FROM sync_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the tombstone takes the batch version so delta windows can carry it
	mock.ExpectExec("INSERT INTO tombstones").
		WithArgs(int64(1), "accounts", "a1", req.ClientTimestamp, "device-a", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_state").
		WithArgs(int64(1), "accounts", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := repo.ApplyChanges(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProcessedCount != 1 {
		t.Errorf("expected delete to be processed, got %d", resp.ProcessedCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplyChanges_UpdateOfTombstonedRecordConflicts(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	deletedAt := time.Now().UTC()

	req := models.UploadRequest{
		DataType:        models.DataTypeContacts,
		DeviceID:        "device-a",
		ClientTimestamp: deletedAt.Add(-time.Minute),
		Changes: []models.Change{{
			RecordID:        "c1",
			Type:            models.ChangeUpdate,
			EncryptedRecord: "Y2lwaGVy",
			Nonce:           "bm9uY2U=",
			Checksum:        "abc123",
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_state").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(6))
	mock.ExpectQuery("SELECT ciphertext, nonce, checksum, version, device_id, updated_at").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT deleted_at, deleted_by_device_id, expires_at").
		WillReturnRows(sqlmock.
			NewRows([]string{"deleted_at", "deleted_by_device_id", "expires_at"}).
			AddRow(deletedAt, "device-b", deletedAt.Add(30*24*time.Hour)))
	mock.ExpectCommit()

	resp, err := repo.ApplyChanges(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("update of a fresher tombstone must conflict, got %d conflicts", len(resp.Conflicts))
	}
	if !resp.Conflicts[0].ServerTimestamp.Equal(deletedAt) {
		t.Errorf("conflict must carry the deletion timestamp")
	}
}

func TestApplyChanges_BeginError(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := repo.ApplyChanges(context.Background(), 1, models.UploadRequest{DataType: models.DataTypeContacts})
	if !errors.Is(err, ErrBeginningTransaction) {
		t.Fatalf("expected ErrBeginningTransaction, got %v", err)
	}
}

func TestGetChangesSince_ReturnsPageAndTotal(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT user_id, data_type, record_id").
		WillReturnRows(sqlmock.
			NewRows([]string{"user_id", "data_type", "record_id", "ciphertext", "nonce", "checksum", "version", "device_id", "updated_at"}).
			AddRow(1, "contacts", "c1", "Y2lwaGVy", "bg==", "abc", 5, "device-a", now).
			AddRow(1, "contacts", "c2", "b3RoZXI=", "bg==", "def", 6, "device-b", now))

	records, total, err := repo.GetChangesSince(context.Background(), 1, models.DataTypeContacts, 4, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RecordID != "c1" || records[1].Version != 6 {
		t.Errorf("unexpected record page: %+v", records)
	}
}

func TestGetTombstones_WindowedBySinceVersion(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	now := time.Now().UTC()

	mock.ExpectQuery("SELECT data_type, record_id, deleted_at, deleted_by_device_id, version, expires_at").
		WithArgs(int64(1), "contacts", int64(4)).
		WillReturnRows(sqlmock.
			NewRows([]string{"data_type", "record_id", "deleted_at", "deleted_by_device_id", "version", "expires_at"}).
			AddRow("contacts", "c9", now, "device-b", 5, now.Add(30*24*time.Hour)))

	tombstones, err := repo.GetTombstones(context.Background(), 1, models.DataTypeContacts, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tombstones) != 1 {
		t.Fatalf("expected 1 tombstone, got %d", len(tombstones))
	}
	if tombstones[0].RecordID != "c9" || tombstones[0].Version != 5 {
		t.Errorf("unexpected tombstone: %+v", tombstones[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVersionCursorAt_ResolvesTimestamp(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(1), "contacts", at).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(17))

	cursor, err := repo.VersionCursorAt(context.Background(), 1, models.DataTypeContacts, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursor != 17 {
		t.Errorf("expected cursor 17, got %d", cursor)
	}
}

func TestPurgeExpiredTombstones(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM tombstones").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	purged, err := repo.PurgeExpiredTombstones(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 4 {
		t.Errorf("expected 4 purged tombstones, got %d", purged)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	repo, mock, db := newTestSyncRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT data_type, encrypted_blob").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSnapshot(context.Background(), 1, models.DataTypePreferences)
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}
