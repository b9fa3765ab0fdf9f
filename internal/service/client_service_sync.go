// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// clientSyncService is the concrete implementation of [ClientSyncService].
//
// One cycle runs in a fixed order: drain the offline queue, then per data
// type upload pending change-log entries (encrypted just-in-time, never
// stored encrypted locally) and download the server delta from the last
// version checkpoint. A server record colliding with a pending local change
// goes through the resolver; everything else applies directly to the mirror.
type clientSyncService struct {
	changeLog store.ChangeLogRepository
	records   store.RecordMirrorRepository
	adapter   adapter.ServerAdapter
	vault     VaultService
	resolver  ResolverService
	queue     QueueService

	deviceID  string
	pageLimit int

	logger *logger.Logger
}

// NewClientSyncService constructs a [ClientSyncService] for one device.
func NewClientSyncService(repos *store.ClientRepositories, serverAdapter adapter.ServerAdapter, vault VaultService, resolver ResolverService, queue QueueService, deviceID string, cfg config.Sync, logger *logger.Logger) ClientSyncService {
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}

	return &clientSyncService{
		changeLog: repos.ChangeLog,
		records:   repos.Records,
		adapter:   serverAdapter,
		vault:     vault,
		resolver:  resolver,
		queue:     queue,
		deviceID:  deviceID,
		pageLimit: limit,
		logger:    logger,
	}
}

// RecordChange implements [ClientSyncService]. The payload is plaintext; it
// is encrypted only when a cycle uploads it.
func (s *clientSyncService) RecordChange(ctx context.Context, dataType models.DataType, recordID string, changeType models.ChangeType, payload []byte) error {
	if !dataType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDataType, string(dataType))
	}
	if recordID == "" || !changeType.Valid() {
		return ErrInvalidDataProvided
	}
	if changeType.RequiresPayload() == (len(payload) == 0) {
		return fmt.Errorf("%w: %s change for record %s", ErrInvalidChange, changeType, recordID)
	}

	now := time.Now().UTC()

	if _, err := s.changeLog.Append(ctx, models.ChangeLogEntry{
		DataType:        dataType,
		RecordID:        recordID,
		Type:            changeType,
		Payload:         payload,
		DeviceID:        s.deviceID,
		ClientTimestamp: now,
	}); err != nil {
		return fmt.Errorf("append change log entry: %w", err)
	}

	if changeType == models.ChangeDelete {
		if err := s.records.Delete(ctx, dataType, recordID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("delete mirrored record: %w", err)
		}
		return nil
	}

	// Base and server version survive local edits; they move only when the
	// server acknowledges.
	record := store.LocalRecord{DataType: dataType, RecordID: recordID}
	if existing, err := s.records.Get(ctx, dataType, recordID); err == nil {
		record = existing
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("load mirrored record: %w", err)
	}

	record.Payload = payload
	record.UpdatedAt = now
	if err := s.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("mirror local change: %w", err)
	}

	return nil
}

// RunCycle implements [ClientSyncService].
func (s *clientSyncService) RunCycle(ctx context.Context) (models.SyncSummary, error) {
	log := logger.FromContext(ctx)

	ring, err := s.vault.Ring()
	if err != nil {
		return models.SyncSummary{}, err
	}

	summary := models.SyncSummary{StartedAt: time.Now().UTC()}

	drained, err := s.queue.Drain(ctx)
	if err != nil {
		log.Warn().Err(err).Str("func", "clientSyncService.RunCycle").Msg("queue drain failed")
	}
	summary.QueueDrained = drained

	queuedIDs, err := s.queue.QueuedChangeIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("load queued change ids: %w", err)
	}

	for _, dataType := range models.AllDataTypes() {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if err := s.syncDataType(ctx, ring, dataType, queuedIDs, &summary); err != nil {
			return summary, fmt.Errorf("sync %s: %w", dataType, err)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)

	log.Info().
		Str("func", "clientSyncService.RunCycle").
		Int("uploaded", summary.Uploaded).
		Int("downloaded", summary.Downloaded).
		Int("tombstones", summary.TombstonesApplied).
		Int("queued_for_retry", summary.QueuedForRetry).
		Int("manual_conflicts", len(summary.Manual)).
		Dur("duration", summary.Duration).
		Msg("sync cycle finished")

	return summary, nil
}

// syncDataType runs the upload and download phases for one data type.
// A network failure parks the upload in the offline queue and skips the
// download; the cycle itself keeps going.
func (s *clientSyncService) syncDataType(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, queuedIDs map[int64]bool, summary *models.SyncSummary) error {
	online, err := s.uploadPending(ctx, ring, dataType, queuedIDs, summary)
	if err != nil {
		return err
	}
	if !online {
		return nil
	}

	return s.downloadDelta(ctx, ring, dataType, summary)
}

// uploadPending pushes the pending change-log entries that are not already
// parked in the offline queue. Returns online=false when the server was
// unreachable and the batch has been queued.
func (s *clientSyncService) uploadPending(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, queuedIDs map[int64]bool, summary *models.SyncSummary) (online bool, err error) {
	log := logger.FromContext(ctx)

	pending, err := s.changeLog.PendingChanges(ctx, dataType)
	if err != nil {
		return false, fmt.Errorf("load pending changes: %w", err)
	}

	var entries []models.ChangeLogEntry
	var changes []models.Change
	var latest time.Time

	for _, entry := range pending {
		if queuedIDs[entry.ID] {
			continue
		}
		// The server rejects bigger batches outright; the remainder ships on
		// the next cycle.
		if len(changes) == models.MaxBatchSize {
			break
		}

		change := models.Change{RecordID: entry.RecordID, Type: entry.Type}
		if entry.Type.RequiresPayload() {
			ciphertext, nonce, checksum, sealErr := ring.Seal(dataType, entry.RecordID, entry.Payload)
			if sealErr != nil {
				return false, fmt.Errorf("seal record %s: %w", entry.RecordID, sealErr)
			}
			change.EncryptedRecord = ciphertext
			change.Nonce = nonce
			change.Checksum = checksum
		}

		entries = append(entries, entry)
		changes = append(changes, change)
		if entry.ClientTimestamp.After(latest) {
			latest = entry.ClientTimestamp
		}
	}

	if len(changes) == 0 {
		return true, nil
	}

	req := models.UploadRequest{
		DataType:        dataType,
		DeviceID:        s.deviceID,
		ClientTimestamp: latest,
		Changes:         changes,
	}

	resp, err := s.adapter.Upload(ctx, req)
	if err != nil {
		if !adapter.IsRetryable(err) {
			return false, fmt.Errorf("upload batch: %w", err)
		}

		ids := make(map[string][]int64, len(entries))
		for _, entry := range entries {
			ids[entry.RecordID] = append(ids[entry.RecordID], entry.ID)
		}
		if queueErr := s.queue.Enqueue(ctx, req, ids); queueErr != nil {
			return false, fmt.Errorf("park upload batch: %w", queueErr)
		}
		summary.QueuedForRetry++

		log.Warn().Err(err).
			Str("func", "clientSyncService.uploadPending").
			Str("data_type", dataType.String()).
			Int("changes", len(changes)).
			Msg("server unreachable, batch parked in offline queue")

		return false, nil
	}

	conflicted := make(map[string]bool, len(resp.Conflicts))
	for i := range resp.Conflicts {
		conflicted[resp.Conflicts[i].RecordID] = true
	}

	var acceptedIDs []int64
	for _, entry := range entries {
		if conflicted[entry.RecordID] {
			continue
		}
		acceptedIDs = append(acceptedIDs, entry.ID)
	}

	if len(acceptedIDs) > 0 {
		if err := s.changeLog.MarkSynced(ctx, acceptedIDs, resp.Version); err != nil {
			return false, fmt.Errorf("mark changes synced: %w", err)
		}
	}
	summary.Uploaded += len(acceptedIDs)

	// Accepted writes become the new merge base.
	for _, entry := range entries {
		if conflicted[entry.RecordID] || !entry.Type.RequiresPayload() {
			continue
		}
		if err := s.promoteBase(ctx, dataType, entry.RecordID, resp.Version); err != nil {
			return false, err
		}
	}

	// Conflicted entries stay pending: the server's winning copy has a
	// version past our checkpoint, so the download phase hands both sides
	// to the resolver.
	return true, nil
}

// promoteBase records server acknowledgement of the mirror's current payload.
func (s *clientSyncService) promoteBase(ctx context.Context, dataType models.DataType, recordID string, version int64) error {
	record, err := s.records.Get(ctx, dataType, recordID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mirrored record %s: %w", recordID, err)
	}

	record.Base = record.Payload
	record.ServerVersion = version
	if err := s.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("promote merge base for %s: %w", recordID, err)
	}
	return nil
}

// downloadDelta pages through the server's changes since the last checkpoint
// and applies them to the mirror.
func (s *clientSyncService) downloadDelta(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, summary *models.SyncSummary) error {
	log := logger.FromContext(ctx)

	since, err := s.records.Checkpoint(ctx, dataType)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	pending, err := s.pendingByRecord(ctx, dataType)
	if err != nil {
		return err
	}

	maxVersion := since
	offset := 0
	var tombstones []models.Tombstone

	for {
		resp, err := s.adapter.Delta(ctx, dataType, since, s.pageLimit, offset)
		if err != nil {
			if adapter.IsRetryable(err) {
				log.Warn().Err(err).
					Str("func", "clientSyncService.downloadDelta").
					Str("data_type", dataType.String()).
					Msg("server unreachable, delta skipped")
				return nil
			}
			return fmt.Errorf("fetch delta: %w", err)
		}

		if offset == 0 {
			tombstones = resp.Deleted
		}

		for i := range resp.Changes {
			rec := resp.Changes[i]
			if err := s.applyServerRecord(ctx, ring, dataType, rec, pending, summary); err != nil {
				return err
			}
			if rec.Version > maxVersion {
				maxVersion = rec.Version
			}
		}

		if !resp.Pagination.HasMore {
			break
		}
		offset = resp.Pagination.NextOffset
	}

	for i := range tombstones {
		ts := tombstones[i]
		if len(pending[ts.RecordID]) > 0 {
			// A local edit postdates the delete's arrival; keep it, the next
			// upload recreates the record.
			continue
		}
		err := s.records.Delete(ctx, dataType, ts.RecordID)
		if err == nil {
			summary.TombstonesApplied++
			continue
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("apply tombstone for %s: %w", ts.RecordID, err)
		}
	}

	if maxVersion > since {
		if err := s.records.SetCheckpoint(ctx, dataType, maxVersion); err != nil {
			return fmt.Errorf("advance checkpoint: %w", err)
		}
	}

	return nil
}

// applyServerRecord decrypts one incoming record and either applies it to
// the mirror or routes it through the resolver when a pending local change
// exists for the same id.
func (s *clientSyncService) applyServerRecord(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, rec models.SyncRecord, pending map[string][]models.ChangeLogEntry, summary *models.SyncSummary) error {
	plaintext, err := ring.Open(dataType, rec.RecordID, rec.Ciphertext, rec.Nonce, rec.Checksum)
	if err != nil {
		return fmt.Errorf("open record %s: %w", rec.RecordID, err)
	}

	collisions := pending[rec.RecordID]
	if len(collisions) == 0 {
		if err := s.records.Upsert(ctx, store.LocalRecord{
			DataType:      dataType,
			RecordID:      rec.RecordID,
			Payload:       plaintext,
			Base:          plaintext,
			ServerVersion: rec.Version,
			UpdatedAt:     rec.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("apply record %s: %w", rec.RecordID, err)
		}
		summary.Downloaded++
		return nil
	}

	return s.resolveCollision(ctx, ring, dataType, rec, plaintext, collisions, summary)
}

// resolveCollision settles a server record against pending local changes for
// the same id.
func (s *clientSyncService) resolveCollision(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, rec models.SyncRecord, plaintext []byte, collisions []models.ChangeLogEntry, summary *models.SyncSummary) error {
	entryIDs := make([]int64, 0, len(collisions))
	var localTimestamp time.Time
	for _, entry := range collisions {
		entryIDs = append(entryIDs, entry.ID)
		if entry.ClientTimestamp.After(localTimestamp) {
			localTimestamp = entry.ClientTimestamp
		}
	}

	local, err := s.records.Get(ctx, dataType, rec.RecordID)
	if errors.Is(err, store.ErrRecordNotFound) {
		// Pending local delete against a server edit: last write wins.
		if rec.UpdatedAt.After(localTimestamp) {
			if err := s.records.Upsert(ctx, store.LocalRecord{
				DataType:      dataType,
				RecordID:      rec.RecordID,
				Payload:       plaintext,
				Base:          plaintext,
				ServerVersion: rec.Version,
				UpdatedAt:     rec.UpdatedAt,
			}); err != nil {
				return fmt.Errorf("restore record %s: %w", rec.RecordID, err)
			}
			if err := s.changeLog.MarkSynced(ctx, entryIDs, rec.Version); err != nil {
				return fmt.Errorf("supersede local delete of %s: %w", rec.RecordID, err)
			}
			summary.Downloaded++
			summary.Resolutions = append(summary.Resolutions, models.AppliedResolution{
				DataType: dataType, RecordID: rec.RecordID, Choice: models.ResolutionUseServer,
			})
		}
		// Otherwise the delete stands and uploads next.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mirrored record %s: %w", rec.RecordID, err)
	}

	resolution, err := s.resolver.Resolve(ResolutionInput{
		DataType:        dataType,
		RecordID:        rec.RecordID,
		Ancestor:        local.Base,
		Local:           local.Payload,
		Server:          plaintext,
		LocalTimestamp:  localTimestamp,
		ServerTimestamp: rec.UpdatedAt,
	})
	if err != nil {
		return err
	}

	switch resolution.Choice {
	case models.ResolutionUseServer:
		if err := s.records.Upsert(ctx, store.LocalRecord{
			DataType:      dataType,
			RecordID:      rec.RecordID,
			Payload:       plaintext,
			Base:          plaintext,
			ServerVersion: rec.Version,
			UpdatedAt:     rec.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("apply server copy of %s: %w", rec.RecordID, err)
		}
		if err := s.changeLog.MarkSynced(ctx, entryIDs, rec.Version); err != nil {
			return fmt.Errorf("discard superseded changes of %s: %w", rec.RecordID, err)
		}
		summary.Downloaded++

	case models.ResolutionUseLocal:
		if err := s.overrideUpload(ctx, ring, dataType, rec.RecordID, local.Payload, localTimestamp, entryIDs, summary); err != nil {
			return err
		}

	case models.ResolutionMerged:
		// The merge lands as a fresh local change on top of the server copy
		// and uploads on the next cycle.
		if err := s.records.Upsert(ctx, store.LocalRecord{
			DataType:      dataType,
			RecordID:      rec.RecordID,
			Payload:       resolution.Merged,
			Base:          plaintext,
			ServerVersion: rec.Version,
			UpdatedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("store merged copy of %s: %w", rec.RecordID, err)
		}
		if err := s.changeLog.MarkSynced(ctx, entryIDs, rec.Version); err != nil {
			return fmt.Errorf("supersede merged changes of %s: %w", rec.RecordID, err)
		}
		if _, err := s.changeLog.Append(ctx, models.ChangeLogEntry{
			DataType:        dataType,
			RecordID:        rec.RecordID,
			Type:            models.ChangeUpdate,
			Payload:         resolution.Merged,
			DeviceID:        s.deviceID,
			ClientTimestamp: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("log merged change of %s: %w", rec.RecordID, err)
		}

	case models.ResolutionManual:
		// Keep both copies intact; the change log entry stays pending until
		// the user picks a side.
		summary.Manual = append(summary.Manual, models.ConflictInfo{
			DataType:        dataType,
			RecordID:        rec.RecordID,
			LocalVersion:    local.ServerVersion,
			ServerVersion:   rec.Version,
			LocalTimestamp:  localTimestamp,
			ServerTimestamp: rec.UpdatedAt,
		})
		return nil
	}

	summary.Resolutions = append(summary.Resolutions, models.AppliedResolution{
		DataType: dataType, RecordID: rec.RecordID, Choice: resolution.Choice,
	})
	return nil
}

// overrideUpload re-pushes the local copy with the override flag, the
// terminal move of a use-local resolution.
func (s *clientSyncService) overrideUpload(ctx context.Context, ring crypto.KeyRing, dataType models.DataType, recordID string, payload []byte, timestamp time.Time, entryIDs []int64, summary *models.SyncSummary) error {
	ciphertext, nonce, checksum, err := ring.Seal(dataType, recordID, payload)
	if err != nil {
		return fmt.Errorf("seal override for %s: %w", recordID, err)
	}

	req := models.UploadRequest{
		DataType:        dataType,
		DeviceID:        s.deviceID,
		ClientTimestamp: timestamp,
		Changes: []models.Change{{
			RecordID:        recordID,
			Type:            models.ChangeUpdate,
			EncryptedRecord: ciphertext,
			Nonce:           nonce,
			Checksum:        checksum,
			Override:        true,
		}},
	}

	resp, err := s.adapter.Upload(ctx, req)
	if err != nil {
		if !adapter.IsRetryable(err) {
			return fmt.Errorf("override upload for %s: %w", recordID, err)
		}
		if queueErr := s.queue.Enqueue(ctx, req, map[string][]int64{recordID: entryIDs}); queueErr != nil {
			return fmt.Errorf("park override upload for %s: %w", recordID, queueErr)
		}
		summary.QueuedForRetry++
		return nil
	}

	if err := s.changeLog.MarkSynced(ctx, entryIDs, resp.Version); err != nil {
		return fmt.Errorf("mark override synced for %s: %w", recordID, err)
	}
	if err := s.promoteBase(ctx, dataType, recordID, resp.Version); err != nil {
		return err
	}
	summary.Uploaded++

	return nil
}

// pendingByRecord groups the still-pending change-log entries by record id.
func (s *clientSyncService) pendingByRecord(ctx context.Context, dataType models.DataType) (map[string][]models.ChangeLogEntry, error) {
	pending, err := s.changeLog.PendingChanges(ctx, dataType)
	if err != nil {
		return nil, fmt.Errorf("load pending changes: %w", err)
	}

	byRecord := make(map[string][]models.ChangeLogEntry, len(pending))
	for _, entry := range pending {
		byRecord[entry.RecordID] = append(byRecord[entry.RecordID], entry)
	}
	return byRecord, nil
}
