// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// syncService is the concrete implementation of [SyncService].
//
// The server never holds key material: validation is limited to wire shape
// and the key-free ciphertext checksum. Conflict detection itself happens in
// the repository's transactional write path.
type syncService struct {
	syncRepository   store.SyncRepository
	deviceRepository store.DeviceRepository
	auditRepository  store.AuditRepository
	logger           *logger.Logger
}

// NewSyncService constructs a [SyncService] over the given repositories.
func NewSyncService(sync store.SyncRepository, devices store.DeviceRepository, audit store.AuditRepository, logger *logger.Logger) SyncService {
	return &syncService{
		syncRepository:   sync,
		deviceRepository: devices,
		auditRepository:  audit,
		logger:           logger,
	}
}

// Upload validates and applies one batch of encrypted changes.
//
// Validation before any write:
//   - known data type, non-empty device id;
//   - at most [models.MaxBatchSize] changes;
//   - every change passes [models.Change.Validate];
//   - for payload-carrying changes the hex SHA-256 checksum matches the
//     ciphertext, so a payload corrupted in transit is rejected without a key.
//
// Conflicts reported by the repository are not errors: they are returned in
// the response and recorded in the audit trail.
func (s *syncService) Upload(ctx context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error) {
	log := logger.FromContext(ctx)

	if err := validateUploadRequest(req); err != nil {
		log.Warn().Err(err).
			Str("func", "syncService.Upload").
			Int64("user_id", userID).
			Str("data_type", req.DataType.String()).
			Msg("rejected upload batch")

		s.audit(ctx, models.AuditEntry{
			UserID:      userID,
			DeviceID:    req.DeviceID,
			Action:      models.AuditUpload,
			DataType:    req.DataType,
			RecordCount: len(req.Changes),
			Success:     false,
			ErrorDetail: err.Error(),
		})
		return models.UploadResponse{}, err
	}

	resp, err := s.syncRepository.ApplyChanges(ctx, userID, req)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.Upload").
			Int64("user_id", userID).
			Msg("failed to apply upload batch")

		s.audit(ctx, models.AuditEntry{
			UserID:      userID,
			DeviceID:    req.DeviceID,
			Action:      models.AuditUpload,
			DataType:    req.DataType,
			RecordCount: len(req.Changes),
			Success:     false,
			ErrorDetail: err.Error(),
		})
		return models.UploadResponse{}, fmt.Errorf("failed to apply upload batch: %w", err)
	}

	s.audit(ctx, models.AuditEntry{
		UserID:      userID,
		DeviceID:    req.DeviceID,
		Action:      models.AuditUpload,
		DataType:    req.DataType,
		RecordCount: resp.ProcessedCount,
		Success:     true,
	})

	if len(resp.Conflicts) > 0 {
		s.audit(ctx, models.AuditEntry{
			UserID:      userID,
			DeviceID:    req.DeviceID,
			Action:      models.AuditConflict,
			DataType:    req.DataType,
			RecordCount: len(resp.Conflicts),
			Success:     true,
		})
	}

	s.touchDevice(ctx, userID, req.DeviceID)

	return resp, nil
}

// Delta returns one page of changes and the unexpired tombstones accepted in
// the same window. Expired tombstones are purged lazily on the way.
func (s *syncService) Delta(ctx context.Context, userID int64, deviceID string, dataType models.DataType, sinceVersion int64, limit, offset int) (models.DeltaResponse, error) {
	log := logger.FromContext(ctx)

	if !dataType.Valid() {
		return models.DeltaResponse{}, fmt.Errorf("%w: %q", ErrUnknownDataType, string(dataType))
	}
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	if sinceVersion < 0 {
		sinceVersion = 0
	}

	if _, err := s.syncRepository.PurgeExpiredTombstones(ctx, time.Now().UTC()); err != nil {
		// purge is opportunistic; the delta itself must still be served
		log.Warn().Err(err).Str("func", "syncService.Delta").Msg("tombstone purge failed")
	}

	records, total, err := s.syncRepository.GetChangesSince(ctx, userID, dataType, sinceVersion, limit, offset)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.Delta").
			Int64("user_id", userID).
			Int64("since_version", sinceVersion).
			Msg("failed to load delta window")
		return models.DeltaResponse{}, fmt.Errorf("failed to load delta window: %w", err)
	}

	tombstones, err := s.syncRepository.GetTombstones(ctx, userID, dataType, sinceVersion)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.Delta").
			Int64("user_id", userID).
			Msg("failed to load tombstones")
		return models.DeltaResponse{}, fmt.Errorf("failed to load tombstones: %w", err)
	}

	s.audit(ctx, models.AuditEntry{
		UserID:      userID,
		DeviceID:    deviceID,
		Action:      models.AuditDownload,
		DataType:    dataType,
		RecordCount: len(records),
		Success:     true,
	})
	s.touchDevice(ctx, userID, deviceID)

	resp := models.DeltaResponse{
		Changes: records,
		Deleted: tombstones,
		Pagination: models.Pagination{
			TotalChanges: total,
			HasMore:      offset+len(records) < total,
			NextOffset:   offset + len(records),
		},
	}

	return resp, nil
}

// ResolveSince maps a wall-clock since parameter to the version cursor the
// delta window starts after. Clients that track versions send them directly;
// this is the path for clients that checkpoint by timestamp.
func (s *syncService) ResolveSince(ctx context.Context, userID int64, dataType models.DataType, since time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	if !dataType.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, string(dataType))
	}

	cursor, err := s.syncRepository.VersionCursorAt(ctx, userID, dataType, since)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.ResolveSince").
			Int64("user_id", userID).
			Time("since", since).
			Msg("failed to resolve since cursor")
		return 0, fmt.Errorf("failed to resolve since cursor: %w", err)
	}

	return cursor, nil
}

// GetSnapshot returns the stored full-vault blob for the data type.
func (s *syncService) GetSnapshot(ctx context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error) {
	if !dataType.Valid() {
		return models.SnapshotPayload{}, fmt.Errorf("%w: %q", ErrUnknownDataType, string(dataType))
	}

	snap, err := s.syncRepository.GetSnapshot(ctx, userID, dataType)
	if err != nil {
		return models.SnapshotPayload{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return snap, nil
}

// SaveSnapshot validates and stores the full-vault blob for the data type.
func (s *syncService) SaveSnapshot(ctx context.Context, userID int64, deviceID string, snapshot models.SnapshotPayload) error {
	log := logger.FromContext(ctx)

	if !snapshot.DataType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDataType, string(snapshot.DataType))
	}
	if snapshot.EncryptedBlob == "" || snapshot.Nonce == "" || snapshot.Checksum == "" {
		return ErrInvalidDataProvided
	}
	if err := verifyWireChecksum(snapshot.EncryptedBlob, snapshot.Checksum); err != nil {
		return err
	}

	if err := s.syncRepository.SaveSnapshot(ctx, userID, snapshot); err != nil {
		log.Err(err).
			Str("func", "syncService.SaveSnapshot").
			Int64("user_id", userID).
			Str("data_type", snapshot.DataType.String()).
			Msg("failed to save snapshot")
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.touchDevice(ctx, userID, deviceID)

	return nil
}

func (s *syncService) audit(ctx context.Context, entry models.AuditEntry) {
	if err := s.auditRepository.Append(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("audit append failed")
	}
}

func (s *syncService) touchDevice(ctx context.Context, userID int64, deviceID string) {
	if deviceID == "" {
		return
	}
	if err := s.deviceRepository.TouchLastSync(ctx, userID, deviceID, time.Now().UTC()); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("device_id", deviceID).Msg("failed to update device last sync")
	}
}

// validateUploadRequest enforces wire shape and payload integrity before any
// database write.
func validateUploadRequest(req models.UploadRequest) error {
	if !req.DataType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDataType, string(req.DataType))
	}
	if req.DeviceID == "" || req.ClientTimestamp.IsZero() || len(req.Changes) == 0 {
		return ErrInvalidDataProvided
	}
	if len(req.Changes) > models.MaxBatchSize {
		return fmt.Errorf("%w: %d changes (max %d)", ErrBatchTooLarge, len(req.Changes), models.MaxBatchSize)
	}

	for _, change := range req.Changes {
		if err := change.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChange, err)
		}
		if change.Type.RequiresPayload() {
			if err := verifyWireChecksum(change.EncryptedRecord, change.Checksum); err != nil {
				return fmt.Errorf("record %s: %w", change.RecordID, err)
			}
		}
	}

	return nil
}

// verifyWireChecksum decodes the base64 ciphertext and checks the hex
// SHA-256 checksum against it.
func verifyWireChecksum(encoded, checksum string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: ciphertext is not valid base64: %w", ErrInvalidDataProvided, err)
	}
	if !crypto.VerifyChecksum(raw, checksum) {
		return ErrPayloadChecksumMismatch
	}
	return nil
}
