// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("owlivion-sync-agent")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create server adapter")
	}

	db, err := store.NewConnectSQLite(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open agent database")
	}
	defer db.Close()

	deviceID, err := db.DeviceIdentity(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve device identity")
	}

	repos := store.NewClientRepositories(db, log)
	services := service.NewClientServices(repos, serverAdapter, deviceID, cfg, log)

	if cfg.Auth.Login != "" && cfg.Auth.Passphrase != "" {
		user, err := services.Auth.Login(ctx, cfg.Auth.Login, cfg.Auth.Passphrase, deviceID, runtime.GOOS)
		if err != nil {
			log.Fatal().Err(err).Msg("login failed")
		}
		log.Info().Str("login", user.Login).Str("device_id", deviceID).Msg("logged in, vault unlocked")
	} else {
		// No credentials: run locked. The scheduler skips cycles until the
		// embedding application unlocks the vault.
		log.Warn().Msg("no credentials configured, starting with a locked vault")
	}

	if cfg.Sync.Enabled {
		// An explicit schedule in the environment overrides whatever the
		// embedding application persisted last run.
		schedule := models.SchedulerConfig{
			Enabled:  true,
			Interval: cfg.Sync.Interval,
		}
		if err := services.Scheduler.Reconfigure(ctx, schedule); err != nil {
			log.Fatal().Err(err).Msg("configure scheduler")
		}
		if _, err := services.Scheduler.SyncNow(ctx); err != nil && !errors.Is(err, service.ErrVaultLocked) {
			log.Warn().Err(err).Msg("initial sync run failed")
		}
	} else {
		if err := services.Scheduler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("start scheduler")
		}
	}

	<-ctx.Done()

	services.Scheduler.Stop()
	services.Vault.Lock()
	log.Info().Msg("agent shut down gracefully")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
