// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package main

import (
	"context"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	httpHandler "github.com/owlivion-tech/owlivion-mail-sub001/internal/handler/http"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/server"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/migrations"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("owlivion-sync-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	ctx := context.Background()

	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err = migrations.Migrate(db.DB); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	repos := store.NewRepositories(db, log)
	services := service.NewServices(repos, cfg, log)
	handler := httpHandler.NewHandler(services, cfg.Server, log)

	srv, err := server.NewServer(handler.Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
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
