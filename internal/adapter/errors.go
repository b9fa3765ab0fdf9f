// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package adapter

import (
	"context"
	"errors"
	"net"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrServerUnavailable   = errors.New("server unavailable")
	ErrInternalServerError = errors.New("internal server error")
)

// IsRetryable reports whether the failure is transient and the request
// belongs in the offline queue: network failures, timeouts, rate limiting and
// server-side outages. Rejections the server made deliberately (bad request,
// auth, conflict) are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerUnavailable) ||
		errors.Is(err, ErrInternalServerError) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
