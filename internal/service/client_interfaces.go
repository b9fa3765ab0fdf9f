// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"context"
	"time"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/crypto"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// VaultService owns the agent's key material. The key ring exists only while
// the vault is unlocked; locking scrubs every derived key from memory.
type VaultService interface {
	// Unlock derives the master secret from the passphrase and the
	// base64-encoded per-account salt and builds the key ring. The master
	// secret is wiped before Unlock returns.
	Unlock(passphrase, encryptionSalt string) error

	// Lock wipes the key ring. All encryption stops until the next Unlock.
	Lock()

	// Unlocked reports whether a usable key ring is held.
	Unlocked() bool

	// Ring returns the active key ring or [ErrVaultLocked].
	Ring() (crypto.KeyRing, error)
}

// ClientAuthService is the agent-side contract for account registration and
// session establishment. A successful login both stores the token pair in the
// adapter and unlocks the vault with the account's encryption salt.
type ClientAuthService interface {
	// Register creates the account and establishes the first session. The
	// passphrase never leaves the device; only the derived auth hash does.
	Register(ctx context.Context, login, passphrase, deviceID, platform string) (models.User, error)

	// Login authenticates, unlocks the vault and stores the token pair.
	Login(ctx context.Context, login, passphrase, deviceID, platform string) (models.User, error)

	// Logout locks the vault and drops the held tokens.
	Logout()
}

// QueueService owns the offline upload queue: durable capture of batches the
// server could not be reached for, exponential-backoff redelivery, and the
// manual retry path for items that exhausted their attempts.
type QueueService interface {
	// Enqueue parks an encrypted upload batch together with the change-log
	// ids it carries, keyed by record id, due immediately.
	Enqueue(ctx context.Context, req models.UploadRequest, changeIDs map[string][]int64) error

	// Drain attempts redelivery of every due item. Accepted changes have
	// their change-log entries marked synced; entries of records the server
	// reported as conflicted stay pending for the resolver. Returns the
	// number delivered.
	Drain(ctx context.Context) (int, error)

	// QueuedChangeIDs returns the change-log ids held by undelivered items,
	// so a sync cycle never uploads the same change twice.
	QueuedChangeIDs(ctx context.Context) (map[int64]bool, error)

	// Retry moves one failed item back to pending, due immediately.
	Retry(ctx context.Context, itemID int64) error

	// Stats returns per-status item counts.
	Stats(ctx context.Context) (models.QueueStats, error)

	// ClearCompleted removes delivered items and returns the number removed.
	ClearCompleted(ctx context.Context) (int64, error)
}

// ResolutionInput is one conflicted record presented to the resolver: the
// last server-acknowledged copy (ancestor), the local edit, and the incoming
// server copy, all plaintext.
type ResolutionInput struct {
	DataType models.DataType
	RecordID string

	// Ancestor is nil when the record has never been acknowledged by the
	// server; the resolver then falls back to last-write-wins.
	Ancestor []byte
	Local    []byte
	Server   []byte

	LocalTimestamp  time.Time
	ServerTimestamp time.Time
}

// Resolution is the resolver's verdict. Merged carries the combined plaintext
// when Choice is [models.ResolutionMerged].
type Resolution struct {
	Choice models.ResolutionChoice
	Merged []byte
}

// ResolverService decides the outcome of a sync conflict. Contacts get a
// field-level three-way merge; every other data type is last-write-wins.
type ResolverService interface {
	Resolve(input ResolutionInput) (Resolution, error)
}

// ClientSyncService runs the agent's side of the sync protocol.
type ClientSyncService interface {
	// RecordChange captures one local mutation: it appends a change-log entry
	// and updates the plaintext mirror. Nothing touches the network here.
	RecordChange(ctx context.Context, dataType models.DataType, recordID string, changeType models.ChangeType, payload []byte) error

	// RunCycle performs one full sync: drain the offline queue, upload
	// pending changes per data type, download and apply the server delta,
	// resolve conflicts, advance checkpoints. Requires an unlocked vault.
	RunCycle(ctx context.Context) (models.SyncSummary, error)
}

// SyncScheduler drives unattended sync runs on a persisted interval and
// serialises them with manual SyncNow calls.
type SyncScheduler interface {
	// Start loads the persisted schedule and, when enabled, launches the
	// ticker goroutine. Restarting replaces any running ticker.
	Start(ctx context.Context) error

	// Stop cancels the ticker goroutine and blocks until it has exited.
	Stop()

	// Reconfigure persists a new schedule (interval clamped to
	// [models.MinSyncInterval, models.MaxSyncInterval]) and restarts the
	// ticker to honour it immediately.
	Reconfigure(ctx context.Context, cfg models.SchedulerConfig) error

	// SyncNow runs one cycle immediately. Returns [ErrSyncAlreadyRunning]
	// when a cycle is in flight; concurrent runs never overlap.
	SyncNow(ctx context.Context) (models.SyncSummary, error)

	// State returns the persisted schedule.
	State(ctx context.Context) (models.SchedulerConfig, error)
}
