// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// auditService is the concrete implementation of [AuditService].
type auditService struct {
	auditRepository store.AuditRepository
	logger          *logger.Logger
}

// NewAuditService constructs an [AuditService] over the given repository.
func NewAuditService(audit store.AuditRepository, logger *logger.Logger) AuditService {
	return &auditService{
		auditRepository: audit,
		logger:          logger,
	}
}

// History returns one page of the trail, newest first.
func (s *auditService) History(ctx context.Context, userID int64, limit, offset int) (models.AuditPage, error) {
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.auditRepository.List(ctx, userID, limit, offset)
	if err != nil {
		return models.AuditPage{}, fmt.Errorf("failed to load audit history: %w", err)
	}

	return page, nil
}

// ExportCSV streams the whole trail to w as CSV, chronological order, with a
// header row. Timestamps are RFC 3339 UTC.
func (s *auditService) ExportCSV(ctx context.Context, userID int64, w io.Writer) error {
	log := logger.FromContext(ctx)

	entries, err := s.auditRepository.ListAll(ctx, userID)
	if err != nil {
		log.Err(err).
			Str("func", "auditService.ExportCSV").
			Int64("user_id", userID).
			Msg("failed to load audit trail for export")
		return fmt.Errorf("failed to load audit trail for export: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "device_id", "action", "data_type", "record_count", "success", "error_detail", "created_at"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.DeviceID,
			string(e.Action),
			e.DataType.String(),
			strconv.Itoa(e.RecordCount),
			strconv.FormatBool(e.Success),
			e.ErrorDetail,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
