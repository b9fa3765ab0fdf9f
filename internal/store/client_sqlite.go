// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/config"
	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
)

// ClientDB wraps the agent's local SQLite database. It holds the change log,
// the offline queue, the plaintext record mirror, the delta checkpoints and
// the scheduler state.
type ClientDB struct {
	*sql.DB
	logger *logger.Logger
}

// NewConnectSQLite opens (creating if needed) the agent database and
// bootstraps the schema.
//
// The pool is pinned to a single connection: SQLite serializes writers
// anyway, and one connection keeps ":memory:" databases coherent in tests.
func NewConnectSQLite(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientDB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.SQLitePath)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Str("path", cfg.SQLitePath).Msg("error opening agent database")
		return nil, fmt.Errorf("error opening agent database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting agent database (ping)")
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, clientSchema); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error bootstrapping agent schema")
		return nil, fmt.Errorf("error bootstrapping agent schema: %w", err)
	}

	log.Info().Str("func", "NewConnectSQLite").Str("path", cfg.SQLitePath).Msg("agent database ready")

	return &ClientDB{
		DB:     conn,
		logger: log,
	}, nil
}

// DeviceIdentity returns this installation's stable device id, generating and
// persisting one on first use. Every change produced by the agent carries it.
func (db *ClientDB) DeviceIdentity(ctx context.Context) (string, error) {
	var deviceID string
	err := db.QueryRowContext(ctx, `SELECT device_id FROM agent_identity WHERE id = 1;`).Scan(&deviceID)
	if err == nil {
		return deviceID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		db.logger.Err(err).Str("func", "ClientDB.DeviceIdentity").Msg("error reading device identity")
		return "", fmt.Errorf("error reading device identity: %w", err)
	}

	deviceID = uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT INTO agent_identity (id, device_id) VALUES (1, ?);`, deviceID); err != nil {
		db.logger.Err(err).Str("func", "ClientDB.DeviceIdentity").Msg("error persisting device identity")
		return "", fmt.Errorf("error persisting device identity: %w", err)
	}

	db.logger.Info().Str("func", "ClientDB.DeviceIdentity").Str("device_id", deviceID).Msg("generated new device identity")

	return deviceID, nil
}
