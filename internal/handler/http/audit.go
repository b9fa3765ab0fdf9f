// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"net/http"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
)

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	page, err := h.services.AuditService.History(ctx, userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, err, "audit history lookup failed")
		return
	}

	utils.WriteJSON(w, page, http.StatusOK)
}

func (h *Handler) exportHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sync_history.csv"`)

	if err := h.services.AuditService.ExportCSV(ctx, userID, w); err != nil {
		// Headers may already be on the wire; all we can do is log.
		log.Err(err).Msg("audit export failed")
	}
}
