// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
)

// Services bundles the server-side services behind one constructor.
type Services struct {
	AuthService   AuthService
	SyncService   SyncService
	DeviceService DeviceService
	AuditService  AuditService
}

// NewServices wires every service to its repositories and configuration.
func NewServices(repos *store.Repositories, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	return &Services{
		AuthService:   NewAuthService(repos.UserRepository, repos.DeviceRepository, repos.AuditRepository, cfg.App, logger),
		SyncService:   NewSyncService(repos.SyncRepository, repos.DeviceRepository, repos.AuditRepository, logger),
		DeviceService: NewDeviceService(repos.DeviceRepository, repos.AuditRepository, logger),
		AuditService:  NewAuditService(repos.AuditRepository, logger),
	}
}
