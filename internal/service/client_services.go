// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
)

// ClientServices bundles the agent-side services behind one constructor,
// mirroring [Services] on the server.
type ClientServices struct {
	Vault     VaultService
	Auth      ClientAuthService
	Queue     QueueService
	Resolver  ResolverService
	Sync      ClientSyncService
	Scheduler SyncScheduler
}

// NewClientServices wires the agent services to the local repositories, the
// server adapter and the configuration. deviceID identifies this
// installation in every change it produces.
func NewClientServices(repos *store.ClientRepositories, serverAdapter adapter.ServerAdapter, deviceID string, cfg *config.ClientConfig, logger *logger.Logger) *ClientServices {
	vault := NewVaultService(logger)
	resolver := NewResolverService(logger)
	queue := NewQueueService(repos.Queue, repos.ChangeLog, serverAdapter, cfg.Queue, logger)
	syncSvc := NewClientSyncService(repos, serverAdapter, vault, resolver, queue, deviceID, cfg.Sync, logger)

	return &ClientServices{
		Vault:     vault,
		Auth:      NewClientAuthService(serverAdapter, vault, logger),
		Queue:     queue,
		Resolver:  resolver,
		Sync:      syncSvc,
		Scheduler: NewSyncScheduler(syncSvc, repos.SchedulerState, logger),
	}
}
