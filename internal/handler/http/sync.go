// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req models.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.SyncService.Upload(ctx, userID, req)
	if err != nil {
		writeError(w, r, err, "upload batch rejected")
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) delta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	deviceID, _ := utils.GetDeviceIDFromContext(ctx)

	dataType, err := models.ParseDataType(r.URL.Query().Get("data_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	since, err := h.resolveSince(ctx, userID, dataType, r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, r, err, "since parameter rejected")
		return
	}
	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	resp, err := h.services.SyncService.Delta(ctx, userID, deviceID, dataType, since, limit, offset)
	if err != nil {
		writeError(w, r, err, "delta request failed")
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	dataType, err := models.ParseDataType(r.URL.Query().Get("data_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.services.SyncService.GetSnapshot(ctx, userID, dataType)
	if err != nil {
		writeError(w, r, err, "snapshot lookup failed")
		return
	}

	utils.WriteJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	deviceID, _ := utils.GetDeviceIDFromContext(ctx)

	var snapshot models.SnapshotPayload
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.SyncService.SaveSnapshot(ctx, userID, deviceID, snapshot); err != nil {
		writeError(w, r, err, "snapshot save failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveSince turns the since query parameter into a version cursor. Both
// forms are accepted on the wire: a version number as handed out by previous
// responses, or an ISO 8601 timestamp that the service maps to the matching
// cursor. Absent means the full history.
func (h *Handler) resolveSince(ctx context.Context, userID int64, dataType models.DataType, raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}

	if version, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return version, nil
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("%w: since must be a version or an ISO 8601 timestamp", service.ErrInvalidDataProvided)
	}

	return h.services.SyncService.ResolveSince(ctx, userID, dataType, at)
}

// queryInt reads an int query parameter, zero when absent or malformed. The
// services clamp pagination values themselves.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
