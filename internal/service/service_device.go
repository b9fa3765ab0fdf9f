// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// deviceService is the concrete implementation of [DeviceService].
type deviceService struct {
	deviceRepository store.DeviceRepository
	auditRepository  store.AuditRepository
	logger           *logger.Logger
}

// NewDeviceService constructs a [DeviceService] over the given repositories.
func NewDeviceService(devices store.DeviceRepository, audit store.AuditRepository, logger *logger.Logger) DeviceService {
	return &deviceService{
		deviceRepository: devices,
		auditRepository:  audit,
		logger:           logger,
	}
}

// ListDevices returns every device registered for the account.
func (s *deviceService) ListDevices(ctx context.Context, userID int64) ([]models.Device, error) {
	devices, err := s.deviceRepository.ListDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// RevokeDevice deactivates the device and kills its sessions. The action is
// always audited, attributed to the device that requested it.
func (s *deviceService) RevokeDevice(ctx context.Context, userID int64, deviceID, requestedBy string) error {
	log := logger.FromContext(ctx)

	if deviceID == "" {
		return ErrInvalidDataProvided
	}

	if err := s.deviceRepository.RevokeDevice(ctx, userID, deviceID); err != nil {
		log.Err(err).
			Str("func", "deviceService.RevokeDevice").
			Str("device_id", deviceID).
			Int64("user_id", userID).
			Msg("device revocation failed")
		return fmt.Errorf("device revocation failed: %w", err)
	}

	if err := s.auditRepository.Append(ctx, models.AuditEntry{
		UserID:      userID,
		DeviceID:    requestedBy,
		Action:      models.AuditRevoke,
		Success:     true,
		ErrorDetail: "revoked device " + deviceID,
	}); err != nil {
		log.Warn().Err(err).Msg("audit append failed")
	}

	return nil
}

// ListSessions returns every refresh session of the account.
func (s *deviceService) ListSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	sessions, err := s.deviceRepository.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession revokes one refresh session by id.
func (s *deviceService) RevokeSession(ctx context.Context, userID, sessionID int64) error {
	if err := s.deviceRepository.RevokeSession(ctx, userID, sessionID); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "deviceService.RevokeSession").
			Int64("session_id", sessionID).
			Msg("session revocation failed")
		return fmt.Errorf("session revocation failed: %w", err)
	}
	return nil
}
