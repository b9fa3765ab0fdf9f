// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
)

// vaultService is the concrete implementation of [VaultService]. It holds at
// most one key ring at a time; unlocking replaces and scrubs any previous
// ring.
type vaultService struct {
	mu   sync.RWMutex
	ring crypto.KeyRing

	logger *logger.Logger
}

// NewVaultService constructs a locked [VaultService].
func NewVaultService(logger *logger.Logger) VaultService {
	return &vaultService{logger: logger}
}

// Unlock implements [VaultService]. The passphrase and the derived master
// secret exist only for the duration of this call.
func (v *vaultService) Unlock(passphrase, encryptionSalt string) error {
	if passphrase == "" || encryptionSalt == "" {
		return ErrInvalidDataProvided
	}

	salt, err := base64.StdEncoding.DecodeString(encryptionSalt)
	if err != nil {
		return fmt.Errorf("decode encryption salt: %w", err)
	}

	var ring crypto.KeyRing
	err = crypto.WithSecret(crypto.DeriveMasterSecret(passphrase, salt), func(secret []byte) error {
		r, ringErr := crypto.NewKeyRing(secret)
		if ringErr != nil {
			return ringErr
		}
		ring = r
		return nil
	})
	if err != nil {
		return fmt.Errorf("build key ring: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ring != nil {
		v.ring.Close()
	}
	v.ring = ring

	v.logger.Info().Str("func", "vaultService.Unlock").Msg("vault unlocked")
	return nil
}

// Lock implements [VaultService].
func (v *vaultService) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ring == nil {
		return
	}
	v.ring.Close()
	v.ring = nil

	v.logger.Info().Str("func", "vaultService.Lock").Msg("vault locked")
}

// Unlocked implements [VaultService].
func (v *vaultService) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ring != nil && !v.ring.Closed()
}

// Ring implements [VaultService].
func (v *vaultService) Ring() (crypto.KeyRing, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.ring == nil || v.ring.Closed() {
		return nil, ErrVaultLocked
	}
	return v.ring, nil
}
