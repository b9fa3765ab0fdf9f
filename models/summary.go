// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// AppliedResolution records one conflict the resolver settled during a sync
// cycle.
type AppliedResolution struct {
	DataType DataType         `json:"data_type"`
	RecordID string           `json:"record_id"`
	Choice   ResolutionChoice `json:"choice"`
}

// SyncSummary is the outcome of one full sync cycle across all data types.
type SyncSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Uploaded counts changes the server accepted; Downloaded counts records
	// applied to the local mirror; TombstonesApplied counts local deletions
	// driven by server tombstones.
	Uploaded          int `json:"uploaded"`
	Downloaded        int `json:"downloaded"`
	TombstonesApplied int `json:"tombstones_applied"`

	// QueueDrained counts previously queued batches delivered this cycle;
	// QueuedForRetry counts batches parked in the offline queue because the
	// server was unreachable.
	QueueDrained   int `json:"queue_drained"`
	QueuedForRetry int `json:"queued_for_retry"`

	// Resolutions lists conflicts settled automatically. Manual lists
	// conflicts that need a user decision; both record versions are retained
	// until one is made.
	Resolutions []AppliedResolution `json:"resolutions,omitempty"`
	Manual      []ConflictInfo      `json:"manual,omitempty"`
}
