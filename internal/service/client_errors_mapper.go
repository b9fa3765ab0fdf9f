// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"errors"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/adapter"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/store"
)

// mapAdapterError translates the adapter's transport error into the business
// error a caller can act on. Errors with no better mapping pass through
// unchanged.
func mapAdapterError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, adapter.ErrBadRequest):
		return ErrInvalidDataProvided
	case errors.Is(err, adapter.ErrUnauthorized):
		return ErrWrongPassword
	case errors.Is(err, adapter.ErrConflict):
		return store.ErrLoginAlreadyExists
	case errors.Is(err, adapter.ErrNotFound):
		return store.ErrRecordNotFound
	}

	return err
}
