// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// ─────────────────────────────────────────────
// Mock: store.SyncRepository
// ─────────────────────────────────────────────

type mockSyncRepository struct {
	applyChangesFn    func(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error)
	getChangesSinceFn func(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64, limit, offset int) ([]models.SyncRecord, int, error)
	getTombstonesFn   func(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64) ([]models.Tombstone, error)
	versionCursorAtFn func(ctx context.Context, userID int64, dataType models.DataType, at time.Time) (int64, error)
	purgeFn           func(ctx context.Context, now time.Time) (int64, error)
	getSnapshotFn     func(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error)
	saveSnapshotFn    func(ctx context.Context, userID int64, snapshot models.SnapshotPayload) error
}

func (m *mockSyncRepository) ApplyChanges(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error) {
	if m.applyChangesFn != nil {
		return m.applyChangesFn(ctx, userID, req)
	}
	return models.UploadResponse{}, nil
}

func (m *mockSyncRepository) GetChangesSince(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64, limit, offset int) ([]models.SyncRecord, int, error) {
	if m.getChangesSinceFn != nil {
		return m.getChangesSinceFn(ctx, userID, dataType, sinceVersion, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockSyncRepository) GetTombstones(ctx context.Context, userID int64, dataType models.DataType, sinceVersion int64) ([]models.Tombstone, error) {
	if m.getTombstonesFn != nil {
		return m.getTombstonesFn(ctx, userID, dataType, sinceVersion)
	}
	return nil, nil
}

func (m *mockSyncRepository) VersionCursorAt(ctx context.Context, userID int64, dataType models.DataType, at time.Time) (int64, error) {
	if m.versionCursorAtFn != nil {
		return m.versionCursorAtFn(ctx, userID, dataType, at)
	}
	return 0, nil
}

func (m *mockSyncRepository) PurgeExpiredTombstones(ctx context.Context, now time.Time) (int64, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, now)
	}
	return 0, nil
}

func (m *mockSyncRepository) GetSnapshot(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error) {
	if m.getSnapshotFn != nil {
		return m.getSnapshotFn(ctx, userID, dataType)
	}
	return models.SnapshotPayload{}, nil
}

func (m *mockSyncRepository) SaveSnapshot(ctx context.Context, userID int64, snapshot models.SnapshotPayload) error {
	if m.saveSnapshotFn != nil {
		return m.saveSnapshotFn(ctx, userID, snapshot)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: store.DeviceRepository
// ─────────────────────────────────────────────

type mockDeviceRepository struct {
	registerDeviceFn func(ctx context.Context, device models.Device) (models.Device, error)
	listDevicesFn    func(ctx context.Context, userID int64) ([]models.Device, error)
	revokeDeviceFn   func(ctx context.Context, userID int64, deviceID string) error
	touchLastSyncFn  func(ctx context.Context, userID int64, deviceID string, at time.Time) error
	createSessionFn  func(ctx context.Context, session models.Session) (models.Session, error)
	findSessionFn    func(ctx context.Context, tokenHash string) (models.Session, error)
	revokeSessionFn  func(ctx context.Context, userID, sessionID int64) error
	listSessionsFn   func(ctx context.Context, userID int64) ([]models.Session, error)
}

func (m *mockDeviceRepository) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	if m.registerDeviceFn != nil {
		return m.registerDeviceFn(ctx, device)
	}
	device.IsActive = true
	return device, nil
}

func (m *mockDeviceRepository) ListDevices(ctx context.Context, userID int64) ([]models.Device, error) {
	if m.listDevicesFn != nil {
		return m.listDevicesFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockDeviceRepository) RevokeDevice(ctx context.Context, userID int64, deviceID string) error {
	if m.revokeDeviceFn != nil {
		return m.revokeDeviceFn(ctx, userID, deviceID)
	}
	return nil
}

func (m *mockDeviceRepository) TouchLastSync(ctx context.Context, userID int64, deviceID string, at time.Time) error {
	if m.touchLastSyncFn != nil {
		return m.touchLastSyncFn(ctx, userID, deviceID, at)
	}
	return nil
}

func (m *mockDeviceRepository) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, session)
	}
	session.ID = 1
	return session, nil
}

func (m *mockDeviceRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	if m.findSessionFn != nil {
		return m.findSessionFn(ctx, tokenHash)
	}
	return models.Session{}, nil
}

func (m *mockDeviceRepository) RevokeSession(ctx context.Context, userID, sessionID int64) error {
	if m.revokeSessionFn != nil {
		return m.revokeSessionFn(ctx, userID, sessionID)
	}
	return nil
}

func (m *mockDeviceRepository) ListSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	if m.listSessionsFn != nil {
		return m.listSessionsFn(ctx, userID)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: store.AuditRepository
// ─────────────────────────────────────────────

type mockAuditRepository struct {
	entries []models.AuditEntry

	appendFn  func(ctx context.Context, entry models.AuditEntry) error
	listFn    func(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error)
	listAllFn func(ctx context.Context, userID int64) ([]models.AuditEntry, error)
}

func (m *mockAuditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepository) List(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit, offset)
	}
	return models.AuditPage{}, nil
}

func (m *mockAuditRepository) ListAll(ctx context.Context, userID int64) ([]models.AuditEntry, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, userID)
	}
	return m.entries, nil
}

// ─────────────────────────────────────────────
// Mock: store.UserRepository
// ─────────────────────────────────────────────

type mockUserRepository struct {
	createUserFn func(ctx context.Context, user models.User) (models.User, error)
	findUserFn   func(ctx context.Context, login string) (models.User, error)
}

func (m *mockUserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, user)
	}
	user.UserID = 1
	return user, nil
}

func (m *mockUserRepository) FindUserByLogin(ctx context.Context, login string) (models.User, error) {
	if m.findUserFn != nil {
		return m.findUserFn(ctx, login)
	}
	return models.User{}, nil
}
