// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"errors"
	"net/http"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrUnknownDataType:         http.StatusBadRequest,
	service.ErrBatchTooLarge:           http.StatusBadRequest,
	service.ErrInvalidChange:           http.StatusBadRequest,
	service.ErrPayloadChecksumMismatch: http.StatusBadRequest,

	service.ErrWrongPassword:           http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrSessionRevoked:          http.StatusUnauthorized,
	service.ErrTokenCreationFailed:     http.StatusInternalServerError,

	store.ErrLoginAlreadyExists: http.StatusConflict,
	store.ErrNoUserWasFound:     http.StatusUnauthorized,
	store.ErrRecordNotFound:     http.StatusNotFound,
	store.ErrDeviceNotFound:     http.StatusNotFound,
	store.ErrSessionNotFound:    http.StatusNotFound,
	store.ErrSnapshotNotFound:   http.StatusNotFound,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// writeError logs the failure and responds with the status mapped to err.
// 5xx responses never leak the internal error message.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.FromRequest(r)
	status := statusFromError(err)

	log.Err(err).Int("status", status).Msg(msg)

	body := err.Error()
	if status >= http.StatusInternalServerError {
		body = http.StatusText(status)
	}
	http.Error(w, body, status)
}
