// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrWrongPassword       = errors.New("wrong password")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrSessionRevoked          = errors.New("session is revoked or unknown")

	ErrUnknownDataType         = errors.New("unknown data type")
	ErrBatchTooLarge           = errors.New("upload batch exceeds the maximum size")
	ErrPayloadChecksumMismatch = errors.New("payload checksum does not match ciphertext")
	ErrInvalidChange           = errors.New("invalid change in upload batch")

	ErrVaultLocked        = errors.New("vault is locked")
	ErrSyncAlreadyRunning = errors.New("a sync cycle is already running")
	ErrUnresolvableRecord = errors.New("record cannot be resolved automatically")
)
