// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// clientAuthService is the concrete implementation of [ClientAuthService].
type clientAuthService struct {
	adapter adapter.ServerAdapter
	vault   VaultService
	logger  *logger.Logger
}

// NewClientAuthService constructs a [ClientAuthService].
func NewClientAuthService(serverAdapter adapter.ServerAdapter, vault VaultService, logger *logger.Logger) ClientAuthService {
	return &clientAuthService{
		adapter: serverAdapter,
		vault:   vault,
		logger:  logger,
	}
}

// Register implements [ClientAuthService].
func (a *clientAuthService) Register(ctx context.Context, login, passphrase, deviceID, platform string) (models.User, error) {
	if login == "" || passphrase == "" {
		return models.User{}, ErrInvalidDataProvided
	}

	creds := models.Credentials{
		Login:    login,
		AuthHash: crypto.DeriveAuthHash(login, passphrase),
		DeviceID: deviceID,
		Platform: platform,
	}

	if _, err := a.adapter.Register(ctx, creds); err != nil {
		return models.User{}, fmt.Errorf("register on server: %w", mapAdapterError(err))
	}

	// Registration issues no session; log in for the token pair and the
	// vault unlock.
	return a.Login(ctx, login, passphrase, deviceID, platform)
}

// Login implements [ClientAuthService].
func (a *clientAuthService) Login(ctx context.Context, login, passphrase, deviceID, platform string) (models.User, error) {
	log := logger.FromContext(ctx)

	if login == "" || passphrase == "" {
		return models.User{}, ErrInvalidDataProvided
	}

	creds := models.Credentials{
		Login:    login,
		AuthHash: crypto.DeriveAuthHash(login, passphrase),
		DeviceID: deviceID,
		Platform: platform,
	}

	user, err := a.adapter.Login(ctx, creds)
	if err != nil {
		return models.User{}, fmt.Errorf("login on server: %w", mapAdapterError(err))
	}

	if err := a.vault.Unlock(passphrase, user.EncryptionSalt); err != nil {
		return models.User{}, fmt.Errorf("unlock vault: %w", err)
	}

	log.Info().
		Str("func", "clientAuthService.Login").
		Str("login", user.Login).
		Msg("logged in, vault unlocked")

	return user, nil
}

// Logout implements [ClientAuthService].
func (a *clientAuthService) Logout() {
	a.vault.Lock()
	a.adapter.SetTokens(models.TokenPair{})
	a.logger.Info().Str("func", "clientAuthService.Logout").Msg("logged out")
}
