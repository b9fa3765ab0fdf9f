// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
)

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	devices, err := h.services.DeviceService.ListDevices(ctx, userID)
	if err != nil {
		writeError(w, r, err, "device listing failed")
		return
	}

	utils.WriteJSON(w, devices, http.StatusOK)
}

func (h *Handler) revokeDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	requestedBy, _ := utils.GetDeviceIDFromContext(ctx)

	deviceID := chi.URLParam(r, "deviceID")
	if err := h.services.DeviceService.RevokeDevice(ctx, userID, deviceID, requestedBy); err != nil {
		writeError(w, r, err, "device revocation failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sessions, err := h.services.DeviceService.ListSessions(ctx, userID)
	if err != nil {
		writeError(w, r, err, "session listing failed")
		return
	}

	utils.WriteJSON(w, sessions, http.StatusOK)
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	if err := h.services.DeviceService.RevokeSession(ctx, userID, sessionID); err != nil {
		writeError(w, r, err, "session revocation failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
