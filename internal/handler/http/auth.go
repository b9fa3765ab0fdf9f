// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"encoding/json"
	"net/http"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/utils"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.AuthService.RegisterUser(ctx, creds)
	if err != nil {
		writeError(w, r, err, "user registration failed")
		return
	}

	log.Info().Str("login", user.Login).Msg("user registered")

	// Registration issues no session; the client logs in next to obtain a
	// token pair and its encryption salt.
	utils.WriteJSON(w, user, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, tokens, err := h.services.AuthService.Login(ctx, creds)
	if err != nil {
		writeError(w, r, err, "user login failed")
		return
	}

	log.Debug().Int64("id", user.UserID).Str("login", user.Login).Msg("user successfully logged in")

	utils.WriteJSON(w, models.AuthResponse{User: user, Tokens: tokens}, http.StatusOK)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	tokens, err := h.services.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeError(w, r, err, "token refresh failed")
		return
	}

	utils.WriteJSON(w, tokens, http.StatusOK)
}
