// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

const defaultRequestTimeout = 15 * time.Second

type httpServerAdapter struct {
	client *resty.Client

	mu     sync.RWMutex
	tokens models.TokenPair

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// adapterCfg.HTTPAddress and configures the underlying resty client with the
// resolved base URL and request timeout.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as
// a valid URL.
func NewHTTPServerAdapter(adapterCfg config.Adapter, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	timeout := adapterCfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &httpServerAdapter{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetTokens implements [ServerAdapter].
func (h *httpServerAdapter) SetTokens(pair models.TokenPair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens = pair
}

// AccessToken implements [ServerAdapter].
func (h *httpServerAdapter) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens.AccessToken
}

func (h *httpServerAdapter) refreshToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens.RefreshToken
}

// Register implements [ServerAdapter]. It POSTs the credentials to
// POST /api/auth/register and returns the created account, including the
// server-generated encryption salt.
func (h *httpServerAdapter) Register(ctx context.Context, creds models.Credentials) (models.User, error) {
	var user models.User

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		SetResult(&user).
		Post("/api/auth/register")
	if err != nil {
		return models.User{}, fmt.Errorf("register request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login implements [ServerAdapter]. It POSTs the client-derived auth hash to
// POST /api/auth/login, stores the issued token pair via SetTokens and
// returns the user record carrying the encryption salt.
func (h *httpServerAdapter) Login(ctx context.Context, creds models.Credentials) (models.User, error) {
	var result models.AuthResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		SetResult(&result).
		Post("/api/auth/login")
	if err != nil {
		return models.User{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.User{}, err
	}

	h.SetTokens(result.Tokens)
	return result.User, nil
}

// Refresh implements [ServerAdapter]. It rotates the held refresh token via
// POST /api/auth/refresh and stores the new pair.
func (h *httpServerAdapter) Refresh(ctx context.Context) (models.TokenPair, error) {
	refresh := h.refreshToken()
	if refresh == "" {
		return models.TokenPair{}, fmt.Errorf("%w: no refresh token held", ErrUnauthorized)
	}

	var pair models.TokenPair

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RefreshRequest{RefreshToken: refresh}).
		SetResult(&pair).
		Post("/api/auth/refresh")
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.TokenPair{}, err
	}

	h.SetTokens(pair)
	return pair, nil
}

// Upload implements [ServerAdapter]. It POSTs one change batch to
// POST /api/sync/upload. Conflicts are returned inside the response; only
// transport and server failures surface as errors.
func (h *httpServerAdapter) Upload(ctx context.Context, req models.UploadRequest) (models.UploadResponse, error) {
	var result models.UploadResponse

	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			SetResult(&result).
			Post("/api/sync/upload")
	})
	if err != nil {
		return models.UploadResponse{}, fmt.Errorf("upload request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.UploadResponse{}, err
	}

	return result, nil
}

// Delta implements [ServerAdapter]. It GETs one page of changes from
// GET /api/sync/delta.
func (h *httpServerAdapter) Delta(ctx context.Context, dataType models.DataType, sinceVersion int64, limit, offset int) (models.DeltaResponse, error) {
	var result models.DeltaResponse

	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParams(map[string]string{
				"data_type": dataType.String(),
				"since":     strconv.FormatInt(sinceVersion, 10),
				"limit":     strconv.Itoa(limit),
				"offset":    strconv.Itoa(offset),
			}).
			SetResult(&result).
			Get("/api/sync/delta")
	})
	if err != nil {
		return models.DeltaResponse{}, fmt.Errorf("delta request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.DeltaResponse{}, err
	}

	return result, nil
}

// GetSnapshot implements [ServerAdapter].
func (h *httpServerAdapter) GetSnapshot(ctx context.Context, dataType models.DataType) (models.SnapshotPayload, error) {
	var result models.SnapshotPayload

	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParam("data_type", dataType.String()).
			SetResult(&result).
			Get("/api/sync/snapshot")
	})
	if err != nil {
		return models.SnapshotPayload{}, fmt.Errorf("get snapshot request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SnapshotPayload{}, err
	}

	return result, nil
}

// SaveSnapshot implements [ServerAdapter].
func (h *httpServerAdapter) SaveSnapshot(ctx context.Context, snapshot models.SnapshotPayload) error {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Content-Type", "application/json").
			SetBody(snapshot).
			Post("/api/sync/snapshot")
	})
	if err != nil {
		return fmt.Errorf("save snapshot request: %w", err)
	}

	return mapHTTPError(resp)
}

// ListDevices implements [ServerAdapter].
func (h *httpServerAdapter) ListDevices(ctx context.Context) ([]models.Device, error) {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/devices")
	})
	if err != nil {
		return nil, fmt.Errorf("list devices request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var devices []models.Device
	if err = json.Unmarshal(resp.Body(), &devices); err != nil {
		return nil, fmt.Errorf("decode devices response: %w", err)
	}

	return devices, nil
}

// RevokeDevice implements [ServerAdapter].
func (h *httpServerAdapter) RevokeDevice(ctx context.Context, deviceID string) error {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParam("deviceID", deviceID).
			Delete("/api/devices/{deviceID}")
	})
	if err != nil {
		return fmt.Errorf("revoke device request: %w", err)
	}

	return mapHTTPError(resp)
}

// ListSessions implements [ServerAdapter].
func (h *httpServerAdapter) ListSessions(ctx context.Context) ([]models.Session, error) {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/sessions")
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var sessions []models.Session
	if err = json.Unmarshal(resp.Body(), &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions response: %w", err)
	}

	return sessions, nil
}

// RevokeSession implements [ServerAdapter].
func (h *httpServerAdapter) RevokeSession(ctx context.Context, sessionID int64) error {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParam("sessionID", strconv.FormatInt(sessionID, 10)).
			Delete("/api/sessions/{sessionID}")
	})
	if err != nil {
		return fmt.Errorf("revoke session request: %w", err)
	}

	return mapHTTPError(resp)
}

// History implements [ServerAdapter].
func (h *httpServerAdapter) History(ctx context.Context, limit, offset int) (models.AuditPage, error) {
	var page models.AuditPage

	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(limit),
				"offset": strconv.Itoa(offset),
			}).
			SetResult(&page).
			Get("/api/audit")
	})
	if err != nil {
		return models.AuditPage{}, fmt.Errorf("history request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.AuditPage{}, err
	}

	return page, nil
}

// ExportHistory implements [ServerAdapter]. The CSV body is copied into w as
// is.
func (h *httpServerAdapter) ExportHistory(ctx context.Context, w io.Writer) error {
	resp, err := h.doAuthed(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/audit/export")
	})
	if err != nil {
		return fmt.Errorf("export history request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	if _, err = w.Write(resp.Body()); err != nil {
		return fmt.Errorf("write export body: %w", err)
	}

	return nil
}

// doAuthed runs one authenticated request. On a 401 it rotates the refresh
// token once and replays the request with the new access token, so an expired
// access token is invisible to callers as long as the session is alive.
func (h *httpServerAdapter) doAuthed(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	resp, err := send(h.authedRequest(ctx))
	if err != nil {
		return resp, err
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		return resp, nil
	}

	if _, refreshErr := h.Refresh(ctx); refreshErr != nil {
		if errors.Is(refreshErr, ErrUnauthorized) {
			// session is gone; surface the original 401
			return resp, nil
		}
		return resp, refreshErr
	}

	return send(h.authedRequest(ctx))
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.AccessToken(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
