// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// authService is the concrete implementation of [AuthService].
//
// Credentials carry a client-derived auth hash, never the passphrase itself:
// the server can verify the account without ever being able to derive any
// record encryption key. The per-account encryption salt is generated here at
// registration and handed back on every login so each device derives the same
// master secret.
type authService struct {
	userRepository   store.UserRepository
	deviceRepository store.DeviceRepository
	auditRepository  store.AuditRepository

	// tokenSignKey is the HMAC secret used to sign and verify JWT tokens.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	tokenIssuer string

	// tokenDuration controls how long a newly issued access JWT remains valid.
	tokenDuration time.Duration

	// refreshDuration controls the refresh-session lifetime.
	refreshDuration time.Duration

	logger *logger.Logger
}

// NewAuthService constructs an [AuthService] wired to the given repositories
// and populated with security parameters from cfg.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewAuthService(users store.UserRepository, devices store.DeviceRepository, audit store.AuditRepository, cfg config.App, logger *logger.Logger) AuthService {
	return &authService{
		userRepository:   users,
		deviceRepository: devices,
		auditRepository:  audit,
		tokenSignKey:     cfg.TokenSignKey,
		tokenIssuer:      cfg.TokenIssuer,
		tokenDuration:    cfg.TokenDuration,
		refreshDuration:  cfg.RefreshDuration,
		logger:           logger,
	}
}

// RegisterUser creates a new account.
//
// A fresh random encryption salt is generated and persisted with the account;
// the client receives it in the response and must use it for master-secret
// derivation on every device.
//
// Returns the persisted user (with server-assigned UserID and the salt) or:
//   - [ErrInvalidDataProvided] if Login or AuthHash is empty.
//   - A wrapped storage error if the repository call fails (e.g. login already
//     taken — see [store.ErrLoginAlreadyExists]).
func (a *authService) RegisterUser(ctx context.Context, creds models.Credentials) (models.User, error) {
	log := logger.FromContext(ctx)

	if creds.Login == "" || creds.AuthHash == "" {
		log.Error().Str("login", creds.Login).Msg("invalid registration data provided")
		return models.User{}, ErrInvalidDataProvided
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		log.Err(err).Str("func", "authService.RegisterUser").Msg("failed to generate encryption salt")
		return models.User{}, fmt.Errorf("failed to generate encryption salt: %w", err)
	}

	user := models.User{
		Login:          creds.Login,
		AuthHash:       creds.AuthHash,
		EncryptionSalt: base64.StdEncoding.EncodeToString(salt),
	}

	registeredUser, err := a.userRepository.CreateUser(ctx, user)
	if err != nil {
		log.Err(err).Str("login", creds.Login).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	return registeredUser, nil
}

// Login authenticates an account, registers (or reactivates) the calling
// device and issues a fresh token pair.
//
// The auth-hash comparison is constant time. The refresh token is returned
// raw exactly once; only its SHA-256 hash is stored.
func (a *authService) Login(ctx context.Context, creds models.Credentials) (models.User, models.TokenPair, error) {
	log := logger.FromContext(ctx)

	if creds.Login == "" || creds.AuthHash == "" {
		log.Error().Str("login", creds.Login).Msg("invalid login data provided")
		return models.User{}, models.TokenPair{}, ErrInvalidDataProvided
	}

	foundUser, err := a.userRepository.FindUserByLogin(ctx, creds.Login)
	if err != nil {
		log.Err(err).Str("login", creds.Login).Msg("user search by login failed")
		return models.User{}, models.TokenPair{}, fmt.Errorf("user search by login failed: %w", err)
	}

	if !hmac.Equal([]byte(foundUser.AuthHash), []byte(creds.AuthHash)) {
		log.Warn().
			Int64("user_id", foundUser.UserID).
			Str("login", foundUser.Login).
			Msg("wrong password")
		return models.User{}, models.TokenPair{}, ErrWrongPassword
	}

	deviceID := creds.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	device, err := a.deviceRepository.RegisterDevice(ctx, models.Device{
		DeviceID: deviceID,
		UserID:   foundUser.UserID,
		Platform: creds.Platform,
	})
	if err != nil {
		log.Err(err).Str("device_id", deviceID).Msg("device registration failed")
		return models.User{}, models.TokenPair{}, fmt.Errorf("device registration failed: %w", err)
	}

	pair, err := a.issueTokenPair(ctx, foundUser.UserID, device.DeviceID)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	a.audit(ctx, models.AuditEntry{
		UserID:   foundUser.UserID,
		DeviceID: device.DeviceID,
		Action:   models.AuditLogin,
		Success:  true,
	})

	return foundUser, pair, nil
}

// Refresh rotates a refresh session: the presented token is looked up by
// hash, revoked, and a brand-new pair is issued for the same device.
//
// Returns [ErrSessionRevoked] when the token is unknown, expired or already
// revoked — a replayed refresh token dies here.
func (a *authService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	if refreshToken == "" {
		return models.TokenPair{}, ErrInvalidDataProvided
	}

	session, err := a.deviceRepository.FindSessionByTokenHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		log.Warn().Err(err).Str("func", "authService.Refresh").Msg("refresh token not accepted")
		return models.TokenPair{}, ErrSessionRevoked
	}

	if err := a.deviceRepository.RevokeSession(ctx, session.UserID, session.ID); err != nil {
		log.Err(err).Int64("session_id", session.ID).Msg("failed to revoke rotated session")
		return models.TokenPair{}, fmt.Errorf("failed to revoke rotated session: %w", err)
	}

	return a.issueTokenPair(ctx, session.UserID, session.DeviceID)
}

// ParseToken validates and parses a raw JWT string.
//
// Any validation failure (expired, wrong issuer, malformed) is normalised to
// [ErrTokenIsExpiredOrInvalid] so that callers do not need to inspect
// low-level JWT errors.
func (a *authService) ParseToken(ctx context.Context, tokenString string) (models.Token, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return models.Token{}, ErrTokenIsExpiredOrInvalid
	}

	return token, nil
}

// issueTokenPair creates an access JWT plus a fresh refresh session for the
// device.
func (a *authService) issueTokenPair(ctx context.Context, userID int64, deviceID string) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	access, err := utils.GenerateJWTToken(a.tokenIssuer, userID, deviceID, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}
	refreshToken := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := a.deviceRepository.CreateSession(ctx, models.Session{
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: hashRefreshToken(refreshToken),
		ExpiresAt: time.Now().Add(a.refreshDuration),
	}); err != nil {
		log.Err(err).Str("device_id", deviceID).Msg("failed to create refresh session")
		return models.TokenPair{}, fmt.Errorf("failed to create refresh session: %w", err)
	}

	return models.TokenPair{
		AccessToken:  access.SignedString,
		RefreshToken: refreshToken,
	}, nil
}

// audit appends a trail entry; failures are logged and swallowed so the
// business operation never fails on a missing audit row.
func (a *authService) audit(ctx context.Context, entry models.AuditEntry) {
	if err := a.auditRepository.Append(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("audit append failed")
	}
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
