// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

// Package http implements the HTTP transport layer of the sync server.
// It provides middleware, route handlers, and request/response utilities
// for the REST API. Authentication, logging, tracing and rate limiting are
// all handled at this layer before requests are forwarded to the service
// layer. Every payload crossing this boundary is ciphertext; the transport
// never inspects record contents.
package http

import (
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
)

type Handler struct {
	services *service.Services
	server   config.Server

	limiter *deviceRateLimiter

	logger *logger.Logger
}

func NewHandler(services *service.Services, serverConfig config.Server, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		server:   serverConfig,
		limiter:  newDeviceRateLimiter(serverConfig.RateLimitRPS, serverConfig.RateLimitBurst),
		logger:   logger,
	}
}
