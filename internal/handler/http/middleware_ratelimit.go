// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
)

// Rate-limit fallbacks for an unset [config.Server].
const (
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
)

// deviceRateLimiter keeps one token bucket per device id. Buckets are created
// on first use and never evicted; the population is bounded by the number of
// registered devices.
type deviceRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	rps   rate.Limit
	burst int
}

func newDeviceRateLimiter(rps float64, burst int) *deviceRateLimiter {
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}
	return &deviceRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (d *deviceRateLimiter) allow(deviceID string) bool {
	d.mu.Lock()
	limiter, ok := d.limiters[deviceID]
	if !ok {
		limiter = rate.NewLimiter(d.rps, d.burst)
		d.limiters[deviceID] = limiter
	}
	d.mu.Unlock()

	return limiter.Allow()
}

// rateLimit bounds the request rate per calling device. It must run after
// [Handler.auth], which put the device id into the context.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID, _ := utils.GetDeviceIDFromContext(r.Context())

		if !h.limiter.allow(deviceID) {
			logger.FromRequest(r).Warn().
				Str("device_id", deviceID).
				Msg("device rate limit exceeded")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
