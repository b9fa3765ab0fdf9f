// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import "github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"

// Repositories bundles every server-side repository behind one constructor so
// the service layer receives a single dependency.
type Repositories struct {
	UserRepository   UserRepository
	SyncRepository   SyncRepository
	DeviceRepository DeviceRepository
	AuditRepository  AuditRepository
}

// NewRepositories constructs all repositories over the shared connection pool.
func NewRepositories(db *DB, log *logger.Logger) *Repositories {
	return &Repositories{
		UserRepository:   NewUserRepository(db, log),
		SyncRepository:   NewSyncRepository(db, log),
		DeviceRepository: NewDeviceRepository(db, log),
		AuditRepository:  NewAuditRepository(db, log),
	}
}
