// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func testAppConfig() config.App {
	return config.App{
		TokenSignKey:    "test-sign-key",
		TokenIssuer:     "owlivion-sync-test",
		TokenDuration:   15 * time.Minute,
		RefreshDuration: 720 * time.Hour,
	}
}

func newTestAuthService(users *mockUserRepository, devices *mockDeviceRepository, audit *mockAuditRepository) AuthService {
	return NewAuthService(users, devices, audit, testAppConfig(), logger.Nop())
}

func TestAuthService_RegisterUser_GeneratesSalt(t *testing.T) {
	var persisted models.User
	users := &mockUserRepository{
		createUserFn: func(ctx context.Context, user models.User) (models.User, error) {
			persisted = user
			user.UserID = 7
			return user, nil
		},
	}
	svc := newTestAuthService(users, &mockDeviceRepository{}, &mockAuditRepository{})

	got, err := svc.RegisterUser(context.Background(), models.Credentials{
		Login:    "ada@owlivion.io",
		AuthHash: "client-derived-hash",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.UserID)

	require.NotEmpty(t, persisted.EncryptionSalt)
	salt, err := base64.StdEncoding.DecodeString(persisted.EncryptionSalt)
	require.NoError(t, err, "salt must be base64 on the wire")
	assert.Len(t, salt, 16)
}

func TestAuthService_RegisterUser_RejectsEmptyCredentials(t *testing.T) {
	svc := newTestAuthService(&mockUserRepository{}, &mockDeviceRepository{}, &mockAuditRepository{})

	_, err := svc.RegisterUser(context.Background(), models.Credentials{Login: "ada@owlivion.io"})
	require.ErrorIs(t, err, ErrInvalidDataProvided)

	_, err = svc.RegisterUser(context.Background(), models.Credentials{AuthHash: "h"})
	require.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_RegisterUser_LoginTaken(t *testing.T) {
	users := &mockUserRepository{
		createUserFn: func(ctx context.Context, user models.User) (models.User, error) {
			return models.User{}, store.ErrLoginAlreadyExists
		},
	}
	svc := newTestAuthService(users, &mockDeviceRepository{}, &mockAuditRepository{})

	_, err := svc.RegisterUser(context.Background(), models.Credentials{
		Login:    "ada@owlivion.io",
		AuthHash: "h",
	})
	require.ErrorIs(t, err, store.ErrLoginAlreadyExists)
}

func TestAuthService_Login_Success(t *testing.T) {
	users := &mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{
				UserID:         7,
				Login:          login,
				AuthHash:       "client-derived-hash",
				EncryptionSalt: "c2FsdA==",
			}, nil
		},
	}
	var registeredDevice models.Device
	var createdSession models.Session
	devices := &mockDeviceRepository{
		registerDeviceFn: func(ctx context.Context, device models.Device) (models.Device, error) {
			registeredDevice = device
			device.IsActive = true
			return device, nil
		},
		createSessionFn: func(ctx context.Context, session models.Session) (models.Session, error) {
			createdSession = session
			session.ID = 1
			return session, nil
		},
	}
	audit := &mockAuditRepository{}
	svc := newTestAuthService(users, devices, audit)

	user, pair, err := svc.Login(context.Background(), models.Credentials{
		Login:    "ada@owlivion.io",
		AuthHash: "client-derived-hash",
		DeviceID: "device-a",
		Platform: "linux/desktop",
	})
	require.NoError(t, err)

	assert.Equal(t, "c2FsdA==", user.EncryptionSalt)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	assert.Equal(t, "device-a", registeredDevice.DeviceID)
	assert.Equal(t, "linux/desktop", registeredDevice.Platform)

	// only the hash of the refresh token may be stored
	assert.NotEmpty(t, createdSession.TokenHash)
	assert.NotEqual(t, pair.RefreshToken, createdSession.TokenHash)
	assert.Equal(t, hashRefreshToken(pair.RefreshToken), createdSession.TokenHash)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditLogin, audit.entries[0].Action)
	assert.Equal(t, "device-a", audit.entries[0].DeviceID)
}

func TestAuthService_Login_GeneratesDeviceIDWhenMissing(t *testing.T) {
	users := &mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{UserID: 7, Login: login, AuthHash: "h"}, nil
		},
	}
	var registeredDevice models.Device
	devices := &mockDeviceRepository{
		registerDeviceFn: func(ctx context.Context, device models.Device) (models.Device, error) {
			registeredDevice = device
			return device, nil
		},
	}
	svc := newTestAuthService(users, devices, &mockAuditRepository{})

	_, _, err := svc.Login(context.Background(), models.Credentials{Login: "ada@owlivion.io", AuthHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, registeredDevice.DeviceID, "a first login without a device id gets one assigned")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := &mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{UserID: 7, Login: login, AuthHash: "the-real-hash"}, nil
		},
	}
	registered := false
	devices := &mockDeviceRepository{
		registerDeviceFn: func(ctx context.Context, device models.Device) (models.Device, error) {
			registered = true
			return device, nil
		},
	}
	svc := newTestAuthService(users, devices, &mockAuditRepository{})

	_, _, err := svc.Login(context.Background(), models.Credentials{
		Login:    "ada@owlivion.io",
		AuthHash: "a-wrong-hash",
	})
	require.ErrorIs(t, err, ErrWrongPassword)
	assert.False(t, registered, "no device may be registered for a failed login")
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	users := &mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{}, store.ErrNoUserWasFound
		},
	}
	svc := newTestAuthService(users, &mockDeviceRepository{}, &mockAuditRepository{})

	_, _, err := svc.Login(context.Background(), models.Credentials{Login: "nobody@owlivion.io", AuthHash: "h"})
	require.ErrorIs(t, err, store.ErrNoUserWasFound)
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	const raw = "the-presented-refresh-token"

	var revokedSession int64
	var newSession models.Session
	devices := &mockDeviceRepository{
		findSessionFn: func(ctx context.Context, tokenHash string) (models.Session, error) {
			assert.Equal(t, hashRefreshToken(raw), tokenHash)
			return models.Session{ID: 11, UserID: 7, DeviceID: "device-a"}, nil
		},
		revokeSessionFn: func(ctx context.Context, userID, sessionID int64) error {
			assert.EqualValues(t, 7, userID)
			revokedSession = sessionID
			return nil
		},
		createSessionFn: func(ctx context.Context, session models.Session) (models.Session, error) {
			newSession = session
			session.ID = 12
			return session, nil
		},
	}
	svc := newTestAuthService(&mockUserRepository{}, devices, &mockAuditRepository{})

	pair, err := svc.Refresh(context.Background(), raw)
	require.NoError(t, err)

	assert.EqualValues(t, 11, revokedSession, "the presented session must be revoked")
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, raw, pair.RefreshToken, "rotation must issue a fresh token")
	assert.Equal(t, "device-a", newSession.DeviceID)
	assert.Equal(t, hashRefreshToken(pair.RefreshToken), newSession.TokenHash)
}

func TestAuthService_Refresh_ReplayedTokenRejected(t *testing.T) {
	devices := &mockDeviceRepository{
		findSessionFn: func(ctx context.Context, tokenHash string) (models.Session, error) {
			return models.Session{}, store.ErrSessionNotFound
		},
	}
	svc := newTestAuthService(&mockUserRepository{}, devices, &mockAuditRepository{})

	_, err := svc.Refresh(context.Background(), "a-revoked-or-unknown-token")
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestAuthService_Refresh_EmptyToken(t *testing.T) {
	svc := newTestAuthService(&mockUserRepository{}, &mockDeviceRepository{}, &mockAuditRepository{})

	_, err := svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_ParseToken_RoundTrip(t *testing.T) {
	svc := newTestAuthService(&mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{UserID: 7, Login: login, AuthHash: "h"}, nil
		},
	}, &mockDeviceRepository{}, &mockAuditRepository{})

	_, pair, err := svc.Login(context.Background(), models.Credentials{
		Login:    "ada@owlivion.io",
		AuthHash: "h",
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	token, err := svc.ParseToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 7, token.UserID)
	assert.Equal(t, "device-a", token.DeviceID)

	_, err = svc.ParseToken(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}

func TestAuthService_Login_SessionCreationFailure(t *testing.T) {
	users := &mockUserRepository{
		findUserFn: func(ctx context.Context, login string) (models.User, error) {
			return models.User{UserID: 7, Login: login, AuthHash: "h"}, nil
		},
	}
	devices := &mockDeviceRepository{
		createSessionFn: func(ctx context.Context, session models.Session) (models.Session, error) {
			return models.Session{}, errors.New("db down")
		},
	}
	svc := newTestAuthService(users, devices, &mockAuditRepository{})

	_, _, err := svc.Login(context.Background(), models.Credentials{Login: "ada@owlivion.io", AuthHash: "h"})
	require.Error(t, err)
}
