// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

// Package config loads, merges and validates the configuration of the sync
// server and the client agent. Values come from environment variables,
// command-line flags and an optional JSON file, merged in that order with
// mergo (non-zero fields win, first source takes precedence).
package config

import (
	"time"
)

// StructuredConfig is the top-level configuration for the sync server.
//
// Struct tags:
//   - envPrefix — prefix applied to nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token parameters and the application version.
	App App `envPrefix:"APP_"`

	// Storage holds the relational database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address, timeout and rate-limit settings.
	Server Server `envPrefix:"SERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file merged
	// on top of env and flags. Populated via CONFIG or -c/-config.
	JSONFilePath string `env:"CONFIG"`
}

// ClientConfig is the top-level configuration for the sync agent.
type ClientConfig struct {
	// Adapter holds the server endpoint the agent talks to.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Auth holds the account credentials for unattended start. When either
	// field is empty the agent starts locked and the embedding application
	// must log in through the client auth service.
	Auth AgentAuth `envPrefix:"AUTH_"`

	// Storage holds the local SQLite database settings.
	Storage ClientStorage `envPrefix:"STORAGE_"`

	// Sync holds scheduler and delta-download settings.
	Sync Sync `envPrefix:"SYNC_"`

	// Queue holds offline-queue retry policy settings.
	Queue Queue `envPrefix:"QUEUE_"`

	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level server settings.
type App struct {
	// TokenSignKey signs and verifies JWT access tokens. Confidential.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim of every issued token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the access-token lifetime (e.g. "15m").
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// RefreshDuration is the refresh-token lifetime (e.g. "720h").
	// Env: APP_REFRESH_DURATION
	RefreshDuration time.Duration `env:"REFRESH_DURATION"`

	// Version is the semantic version of the running server.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage holds the server persistence settings.
type Storage struct {
	DB DB `envPrefix:"DB_"`
}

// DB holds the PostgreSQL connection settings.
type DB struct {
	// DSN is the PostgreSQL connection string.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Server holds inbound transport settings.
type Server struct {
	// HTTPAddress is the listen address in "host:port" form.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RateLimitRPS and RateLimitBurst bound per-device request rates.
	// Env: SERVER_RATE_LIMIT_RPS / SERVER_RATE_LIMIT_BURST
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST"`
}

// Adapter holds the client-side view of the server endpoint.
type Adapter struct {
	// HTTPAddress is the sync server base URL.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds one outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// AgentAuth holds the account credentials of the unattended agent.
type AgentAuth struct {
	// Login is the account identifier (the mail address).
	// Env: AUTH_LOGIN
	Login string `env:"LOGIN"`

	// Passphrase derives the auth hash and the encryption keys. Confidential.
	// Env: AUTH_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`
}

// ClientStorage holds the agent's local persistence settings.
type ClientStorage struct {
	// SQLitePath is the path of the agent database holding the change log,
	// the offline queue, the record mirror and the scheduler state.
	// Env: STORAGE_SQLITE_PATH
	SQLitePath string `env:"SQLITE_PATH"`
}

// Sync holds scheduler and delta settings.
type Sync struct {
	// Interval between unattended sync runs. Clamped to [1m, 24h].
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// Enabled starts the scheduler on launch.
	// Env: SYNC_ENABLED
	Enabled bool `env:"ENABLED"`

	// PageLimit is the delta-download page size (default 100, capped 1000).
	// Env: SYNC_PAGE_LIMIT
	PageLimit int `env:"PAGE_LIMIT"`
}

// Queue holds the offline-queue retry policy.
type Queue struct {
	// BackoffBase is the first retry delay; doubled on every attempt.
	// Env: QUEUE_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffMax caps the retry delay.
	// Env: QUEUE_BACKOFF_MAX
	BackoffMax time.Duration `env:"BACKOFF_MAX"`

	// MaxAttempts is the number of retries before an item turns failed.
	// Env: QUEUE_MAX_ATTEMPTS
	MaxAttempts int `env:"MAX_ATTEMPTS"`
}

// GetStructuredConfig loads, merges and validates the server configuration
// from all sources (env, then flags, then optional JSON file).
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}

// GetClientConfig loads, merges and validates the agent configuration.
func GetClientConfig() (*ClientConfig, error) {
	return newClientConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
