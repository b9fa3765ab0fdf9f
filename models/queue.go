// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "time"

// QueueStatus is the closed set of offline-queue item states.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueFailed    QueueStatus = "failed"
	QueueCompleted QueueStatus = "completed"
)

// Valid reports whether s is a known queue status.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueuePending, QueueFailed, QueueCompleted:
		return true
	}
	return false
}

// QueueItem is one durably captured failed upload. Items are created on
// network failure, mutated on every retry, and removed only on success or an
// explicit clear — never silently discarded.
type QueueItem struct {
	ID            int64       `json:"id"`
	DataType      DataType    `json:"data_type"`
	Payload       []byte      `json:"payload"` // serialized UploadRequest (ciphertext only)
	AttemptCount  int         `json:"attempt_count"`
	NextAttemptAt time.Time   `json:"next_attempt_at"`
	Status        QueueStatus `json:"status"`
	LastError     string      `json:"last_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// QueueStats is the aggregate view exposed for observability.
type QueueStats struct {
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
}

// Total returns the number of items across all states.
func (s QueueStats) Total() int { return s.Pending + s.Failed + s.Completed }
