// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package config

import (
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// validate checks that the merged server configuration satisfies startup
// invariants.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}
	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" || cfg.App.TokenDuration == 0 {
		return ErrInvalidAppConfigs
	}
	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	return nil
}

// applyDefaults fills zero-valued agent settings with the documented
// defaults. Applied after merging, before validation.
func (cfg *ClientConfig) applyDefaults() {
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.PageLimit == 0 {
		cfg.Sync.PageLimit = models.DefaultPageLimit
	}
	if cfg.Queue.BackoffBase == 0 {
		cfg.Queue.BackoffBase = 30 * time.Second
	}
	if cfg.Queue.BackoffMax == 0 {
		cfg.Queue.BackoffMax = time.Hour
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 5
	}
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = 30 * time.Second
	}
}

// validate checks that the merged agent configuration satisfies startup
// invariants: a reachable server, a durable local store, an interval inside
// the supported scheduling window, and a sane retry policy.
func (cfg *ClientConfig) validate() error {
	if cfg.Adapter.HTTPAddress == "" {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Storage.SQLitePath == "" {
		return ErrInvalidStorageConfigs
	}
	if cfg.Sync.Interval < models.MinSyncInterval || cfg.Sync.Interval > models.MaxSyncInterval {
		return ErrInvalidSyncConfigs
	}
	if cfg.Sync.PageLimit < 1 || cfg.Sync.PageLimit > models.MaxPageLimit {
		return ErrInvalidSyncConfigs
	}
	if cfg.Queue.BackoffBase <= 0 || cfg.Queue.BackoffMax < cfg.Queue.BackoffBase || cfg.Queue.MaxAttempts < 1 {
		return ErrInvalidQueueConfigs
	}

	return nil
}
