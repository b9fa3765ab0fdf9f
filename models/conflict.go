// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// ConflictInfo describes one rejected change. It is produced during an
// upload cycle, consumed by the conflict resolver, and persisted nowhere
// except the audit trail.
type ConflictInfo struct {
	DataType        DataType  `json:"data_type"`
	RecordID        string    `json:"record_id"`
	LocalVersion    int64     `json:"local_version"`
	ServerVersion   int64     `json:"server_version"`
	LocalTimestamp  time.Time `json:"local_timestamp"`
	ServerTimestamp time.Time `json:"server_timestamp"`

	// ProposedResolution is filled by the resolver when it can decide without
	// user input; empty when the conflict must be escalated.
	ProposedResolution ResolutionChoice `json:"proposed_resolution,omitempty"`
}

// ResolutionChoice is the closed set of outcomes the resolver can produce
// for a conflicted record.
type ResolutionChoice string

const (
	// ResolutionUseLocal re-uploads the local record with override set.
	ResolutionUseLocal ResolutionChoice = "use_local"
	// ResolutionUseServer discards the local edit and applies the server copy.
	ResolutionUseServer ResolutionChoice = "use_server"
	// ResolutionMerged uploads a field-merged record as a new version.
	ResolutionMerged ResolutionChoice = "merged"
	// ResolutionManual means the same field changed on both sides; the user
	// must pick a side via a terminal use-local / use-server action.
	ResolutionManual ResolutionChoice = "manual"
)
