// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// Retry policy fallbacks for an unset [config.Queue].
const (
	defaultBackoffBase = 30 * time.Second
	defaultBackoffMax  = time.Hour
	defaultMaxAttempts = 8
)

// queuedUpload is the durable payload of one offline-queue item: the fully
// encrypted request plus the change-log ids it carries, keyed by record id so
// delivery can mark exactly the accepted entries synced.
type queuedUpload struct {
	Request   models.UploadRequest `json:"request"`
	ChangeIDs map[string][]int64   `json:"change_ids"`
}

// queueService is the concrete implementation of [QueueService].
type queueService struct {
	queueRepository     store.QueueRepository
	changeLogRepository store.ChangeLogRepository
	adapter             adapter.ServerAdapter

	backoffBase time.Duration
	backoffMax  time.Duration
	maxAttempts int

	logger *logger.Logger
}

// NewQueueService constructs a [QueueService] with the retry policy from cfg.
func NewQueueService(queue store.QueueRepository, changeLog store.ChangeLogRepository, serverAdapter adapter.ServerAdapter, cfg config.Queue, logger *logger.Logger) QueueService {
	base := cfg.BackoffBase
	if base <= 0 {
		base = defaultBackoffBase
	}
	maxDelay := cfg.BackoffMax
	if maxDelay <= 0 {
		maxDelay = defaultBackoffMax
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	return &queueService{
		queueRepository:     queue,
		changeLogRepository: changeLog,
		adapter:             serverAdapter,
		backoffBase:         base,
		backoffMax:          maxDelay,
		maxAttempts:         attempts,
		logger:              logger,
	}
}

// Enqueue implements [QueueService].
func (s *queueService) Enqueue(ctx context.Context, req models.UploadRequest, changeIDs map[string][]int64) error {
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(queuedUpload{Request: req, ChangeIDs: changeIDs})
	if err != nil {
		return fmt.Errorf("marshal queued upload: %w", err)
	}

	item, err := s.queueRepository.Enqueue(ctx, models.QueueItem{
		DataType:      req.DataType,
		Payload:       payload,
		NextAttemptAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("enqueue upload batch: %w", err)
	}

	log.Info().
		Str("func", "queueService.Enqueue").
		Int64("item_id", item.ID).
		Str("data_type", req.DataType.String()).
		Int("changes", len(req.Changes)).
		Msg("upload batch parked for retry")

	return nil
}

// Drain implements [QueueService]. Items are attempted oldest-due first; one
// item's failure never blocks the rest.
func (s *queueService) Drain(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	due, err := s.queueRepository.Due(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load due queue items: %w", err)
	}

	delivered := 0
	for _, item := range due {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if s.deliver(ctx, item) {
			delivered++
		}
	}

	if delivered > 0 {
		log.Info().
			Str("func", "queueService.Drain").
			Int("delivered", delivered).
			Int("due", len(due)).
			Msg("offline queue drained")
	}

	return delivered, nil
}

// deliver attempts one item and persists the outcome. Returns true on
// successful delivery.
func (s *queueService) deliver(ctx context.Context, item models.QueueItem) bool {
	log := logger.FromContext(ctx)
	now := time.Now().UTC()

	var queued queuedUpload
	if err := json.Unmarshal(item.Payload, &queued); err != nil {
		// A corrupt payload can never be delivered; retire it.
		log.Error().Err(err).
			Str("func", "queueService.deliver").
			Int64("item_id", item.ID).
			Msg("corrupt queue payload")
		_ = s.queueRepository.MarkFailed(ctx, item.ID, "corrupt payload: "+err.Error(), now)
		return false
	}

	resp, err := s.adapter.Upload(ctx, queued.Request)
	if err == nil {
		if markErr := s.queueRepository.MarkCompleted(ctx, item.ID, now); markErr != nil {
			log.Warn().Err(markErr).Int64("item_id", item.ID).Msg("failed to mark queue item completed")
		}

		// A record that conflicted while the item waited keeps its entries
		// pending: the next download hands both sides to the resolver.
		conflicted := make(map[string]bool, len(resp.Conflicts))
		for i := range resp.Conflicts {
			conflicted[resp.Conflicts[i].RecordID] = true
		}

		var acceptedIDs []int64
		for recordID, changeIDs := range queued.ChangeIDs {
			if conflicted[recordID] {
				continue
			}
			acceptedIDs = append(acceptedIDs, changeIDs...)
		}

		if len(acceptedIDs) > 0 {
			if markErr := s.changeLogRepository.MarkSynced(ctx, acceptedIDs, resp.Version); markErr != nil {
				log.Warn().Err(markErr).Int64("item_id", item.ID).Msg("failed to mark change log entries synced")
			}
		}
		return true
	}

	if !adapter.IsRetryable(err) {
		log.Warn().Err(err).
			Str("func", "queueService.deliver").
			Int64("item_id", item.ID).
			Msg("queue item rejected by server")
		_ = s.queueRepository.MarkFailed(ctx, item.ID, err.Error(), now)
		return false
	}

	attempts := item.AttemptCount + 1
	if attempts >= s.maxAttempts {
		log.Warn().Err(err).
			Str("func", "queueService.deliver").
			Int64("item_id", item.ID).
			Int("attempts", attempts).
			Msg("queue item exhausted its attempts")
		_ = s.queueRepository.MarkFailed(ctx, item.ID, err.Error(), now)
		return false
	}

	next := now.Add(s.backoff(attempts))
	if rescheduleErr := s.queueRepository.Reschedule(ctx, item.ID, attempts, next, err.Error(), now); rescheduleErr != nil {
		log.Warn().Err(rescheduleErr).Int64("item_id", item.ID).Msg("failed to reschedule queue item")
	}

	return false
}

// QueuedChangeIDs implements [QueueService].
func (s *queueService) QueuedChangeIDs(ctx context.Context) (map[int64]bool, error) {
	items, err := s.queueRepository.Live(ctx)
	if err != nil {
		return nil, fmt.Errorf("load live queue items: %w", err)
	}

	ids := make(map[int64]bool)
	for _, item := range items {
		var queued queuedUpload
		if err := json.Unmarshal(item.Payload, &queued); err != nil {
			continue
		}
		for _, changeIDs := range queued.ChangeIDs {
			for _, id := range changeIDs {
				ids[id] = true
			}
		}
	}

	return ids, nil
}

// Retry implements [QueueService].
func (s *queueService) Retry(ctx context.Context, itemID int64) error {
	if err := s.queueRepository.Retry(ctx, itemID, time.Now().UTC()); err != nil {
		return fmt.Errorf("retry queue item %d: %w", itemID, err)
	}
	return nil
}

// Stats implements [QueueService].
func (s *queueService) Stats(ctx context.Context) (models.QueueStats, error) {
	return s.queueRepository.Stats(ctx)
}

// ClearCompleted implements [QueueService].
func (s *queueService) ClearCompleted(ctx context.Context) (int64, error) {
	return s.queueRepository.ClearCompleted(ctx)
}

// backoff returns the delay before the given attempt number: base doubled per
// attempt with a ±20% jitter, capped at the configured maximum.
func (s *queueService) backoff(attempt int) time.Duration {
	delay := s.backoffBase
	for i := 1; i < attempt && delay < s.backoffMax; i++ {
		delay *= 2
	}
	if delay > s.backoffMax {
		delay = s.backoffMax
	}

	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	delay = time.Duration(float64(delay) * jitter)
	if delay > s.backoffMax {
		delay = s.backoffMax
	}

	return delay
}
