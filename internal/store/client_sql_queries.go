// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package store

// clientSchema is applied on every agent start; all statements are
// idempotent.
const clientSchema = `
CREATE TABLE IF NOT EXISTS change_log (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    data_type        TEXT      NOT NULL,
    record_id        TEXT      NOT NULL,
    change_type      TEXT      NOT NULL,
    payload          BLOB,
    device_id        TEXT      NOT NULL,
    client_timestamp TIMESTAMP NOT NULL,
    server_version   INTEGER   NOT NULL DEFAULT 0,
    synced           INTEGER   NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_change_log_pending ON change_log (data_type, synced);

CREATE TABLE IF NOT EXISTS offline_queue (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    data_type       TEXT      NOT NULL,
    payload         BLOB      NOT NULL,
    attempt_count   INTEGER   NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMP NOT NULL,
    status          TEXT      NOT NULL DEFAULT 'pending',
    last_error      TEXT      NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_offline_queue_due ON offline_queue (status, next_attempt_at);

CREATE TABLE IF NOT EXISTS records (
    data_type      TEXT    NOT NULL,
    record_id      TEXT    NOT NULL,
    payload        BLOB    NOT NULL,
    base_payload   BLOB,
    server_version INTEGER NOT NULL DEFAULT 0,
    updated_at     TIMESTAMP NOT NULL,
    PRIMARY KEY (data_type, record_id)
);

CREATE TABLE IF NOT EXISTS sync_checkpoints (
    data_type    TEXT PRIMARY KEY,
    last_version INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scheduler_state (
    id               INTEGER PRIMARY KEY CHECK (id = 1),
    enabled          INTEGER NOT NULL DEFAULT 0,
    interval_seconds INTEGER NOT NULL DEFAULT 300,
    last_run         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agent_identity (
    id        INTEGER PRIMARY KEY CHECK (id = 1),
    device_id TEXT NOT NULL
);
`

const (
	appendChangeLogEntry = `INSERT INTO change_log (data_type, record_id, change_type, payload, device_id, client_timestamp)
		VALUES (?, ?, ?, ?, ?, ?);`

	// Pending entries are replayed oldest-first so the server sees mutations
	// in the order they happened on this device.
	pendingChangeLogEntries = `SELECT id, data_type, record_id, change_type, payload, device_id, client_timestamp, server_version, synced
		FROM change_log
		WHERE data_type = ? AND synced = 0
		ORDER BY id;`

	markChangeLogSynced = `UPDATE change_log
		SET synced = 1, server_version = ?
		WHERE id = ?;`

	pruneSyncedChangeLog = `DELETE FROM change_log
		WHERE synced = 1 AND client_timestamp < ?;`

	enqueueItem = `INSERT INTO offline_queue (data_type, payload, attempt_count, next_attempt_at, status, last_error, created_at, updated_at)
		VALUES (?, ?, 0, ?, 'pending', '', ?, ?);`

	dueQueueItems = `SELECT id, data_type, payload, attempt_count, next_attempt_at, status, last_error, created_at, updated_at
		FROM offline_queue
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id;`

	completeQueueItem = `UPDATE offline_queue
		SET status = 'completed', updated_at = ?
		WHERE id = ?;`

	failQueueItem = `UPDATE offline_queue
		SET status = 'failed', last_error = ?, updated_at = ?
		WHERE id = ?;`

	rescheduleQueueItem = `UPDATE offline_queue
		SET attempt_count = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?;`

	// Manual retry of a failed item: back to pending, attempt counter reset,
	// due immediately.
	retryQueueItem = `UPDATE offline_queue
		SET status = 'pending', attempt_count = 0, next_attempt_at = ?, updated_at = ?
		WHERE id = ? AND status = 'failed';`

	// Live items are everything not yet delivered: pending retries plus
	// retired failures awaiting manual retry.
	liveQueueItems = `SELECT id, data_type, payload, attempt_count, next_attempt_at, status, last_error, created_at, updated_at
		FROM offline_queue
		WHERE status IN ('pending', 'failed')
		ORDER BY id;`

	queueStats = `SELECT status, COUNT(*)
		FROM offline_queue
		GROUP BY status;`

	clearCompletedQueueItems = `DELETE FROM offline_queue
		WHERE status = 'completed';`

	upsertLocalRecord = `INSERT INTO records (data_type, record_id, payload, base_payload, server_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (data_type, record_id)
		DO UPDATE SET
			payload        = excluded.payload,
			base_payload   = excluded.base_payload,
			server_version = excluded.server_version,
			updated_at     = excluded.updated_at;`

	getLocalRecord = `SELECT data_type, record_id, payload, base_payload, server_version, updated_at
		FROM records
		WHERE data_type = ? AND record_id = ?;`

	listLocalRecords = `SELECT data_type, record_id, payload, base_payload, server_version, updated_at
		FROM records
		WHERE data_type = ?
		ORDER BY record_id;`

	deleteLocalRecord = `DELETE FROM records
		WHERE data_type = ? AND record_id = ?;`

	getCheckpoint = `SELECT last_version
		FROM sync_checkpoints
		WHERE data_type = ?;`

	setCheckpoint = `INSERT INTO sync_checkpoints (data_type, last_version)
		VALUES (?, ?)
		ON CONFLICT (data_type)
		DO UPDATE SET last_version = excluded.last_version;`

	loadSchedulerState = `SELECT enabled, interval_seconds, last_run
		FROM scheduler_state
		WHERE id = 1;`

	saveSchedulerState = `INSERT INTO scheduler_state (id, enabled, interval_seconds, last_run)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			enabled          = excluded.enabled,
			interval_seconds = excluded.interval_seconds,
			last_run         = excluded.last_run;`
)
