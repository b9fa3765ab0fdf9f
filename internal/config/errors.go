package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or out of bounds.
var (
	// ErrInvalidAdapterConfigs indicates missing server endpoint settings.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates missing or unusable storage settings.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAppConfigs indicates missing token settings.
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidServerConfigs indicates missing listen address settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidSyncConfigs indicates a sync interval or page limit outside
	// the supported window.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidQueueConfigs indicates an unusable retry policy.
	ErrInvalidQueueConfigs = errors.New("invalid queue configuration")
)
