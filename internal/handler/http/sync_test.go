// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/service"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func TestUpload_PassesBatchToTheService(t *testing.T) {
	sync := &mockSyncService{
		uploadFn: func(_ context.Context, userID int64, req models.UploadRequest) (models.UploadResponse, error) {
			assert.EqualValues(t, 7, userID)
			assert.Equal(t, models.DataTypeContacts, req.DataType)
			require.Len(t, req.Changes, 1)
			assert.Equal(t, "c1", req.Changes[0].RecordID)
			return models.UploadResponse{Version: 12, ProcessedCount: 1}, nil
		},
	}
	h := newTestHandler(okTokenAuth(), sync, nil, nil)

	body := `{"data_type":"contacts","device_id":"device-a","changes":[{"record_id":"c1","change_type":"insert","encrypted_record":"YQ==","record_nonce":"bg==","record_checksum":"ff"}]}`
	rec := doRequest(h, http.MethodPost, "/api/sync/upload", body, "good")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 12, resp.Version)
	assert.Equal(t, 1, resp.ProcessedCount)
}

func TestUpload_ServiceRejectionsMapToStatuses(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "unknown data type", serviceErr: service.ErrUnknownDataType, wantStatus: http.StatusBadRequest},
		{name: "oversized batch", serviceErr: service.ErrBatchTooLarge, wantStatus: http.StatusBadRequest},
		{name: "checksum mismatch", serviceErr: service.ErrPayloadChecksumMismatch, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync := &mockSyncService{
				uploadFn: func(context.Context, int64, models.UploadRequest) (models.UploadResponse, error) {
					return models.UploadResponse{}, tt.serviceErr
				},
			}
			h := newTestHandler(okTokenAuth(), sync, nil, nil)

			rec := doRequest(h, http.MethodPost, "/api/sync/upload", `{"data_type":"contacts"}`, "good")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDelta_ParsesQueryParameters(t *testing.T) {
	sync := &mockSyncService{
		deltaFn: func(_ context.Context, userID int64, deviceID string, dataType models.DataType, since int64, limit, offset int) (models.DeltaResponse, error) {
			assert.EqualValues(t, 7, userID)
			assert.Equal(t, "device-a", deviceID)
			assert.Equal(t, models.DataTypePreferences, dataType)
			assert.EqualValues(t, 42, since)
			assert.Equal(t, 50, limit)
			assert.Equal(t, 100, offset)
			return models.DeltaResponse{Pagination: models.Pagination{TotalChanges: 0}}, nil
		},
	}
	h := newTestHandler(okTokenAuth(), sync, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/sync/delta?data_type=preferences&since=42&limit=50&offset=100", "", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelta_TimestampSinceResolvesToCursor(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sync := &mockSyncService{
		resolveSinceFn: func(_ context.Context, userID int64, dataType models.DataType, since time.Time) (int64, error) {
			assert.EqualValues(t, 7, userID)
			assert.Equal(t, models.DataTypeContacts, dataType)
			assert.True(t, since.Equal(at))
			return 17, nil
		},
		deltaFn: func(_ context.Context, _ int64, _ string, _ models.DataType, since int64, _, _ int) (models.DeltaResponse, error) {
			assert.EqualValues(t, 17, since, "the resolved cursor feeds the delta window")
			return models.DeltaResponse{}, nil
		},
	}
	h := newTestHandler(okTokenAuth(), sync, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/sync/delta?data_type=contacts&since=2026-08-01T12%3A00%3A00Z", "", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelta_MalformedSinceIs400(t *testing.T) {
	h := newTestHandler(okTokenAuth(), &mockSyncService{}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/sync/delta?data_type=contacts&since=yesterday", "", "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ISO 8601")
}

func TestDelta_UnknownDataTypeIs400(t *testing.T) {
	h := newTestHandler(okTokenAuth(), &mockSyncService{}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/sync/delta?data_type=mailboxes", "", "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	saved := false
	sync := &mockSyncService{
		getSnapshotFn: func(_ context.Context, userID int64, dataType models.DataType) (models.SnapshotPayload, error) {
			assert.EqualValues(t, 7, userID)
			return models.SnapshotPayload{DataType: dataType, EncryptedBlob: "YmxvYg==", Version: 3}, nil
		},
		saveSnapshotFn: func(_ context.Context, userID int64, deviceID string, snapshot models.SnapshotPayload) error {
			assert.EqualValues(t, 7, userID)
			assert.Equal(t, "device-a", deviceID)
			assert.Equal(t, models.DataTypeContacts, snapshot.DataType)
			saved = true
			return nil
		},
	}
	h := newTestHandler(okTokenAuth(), sync, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/sync/snapshot?data_type=contacts", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.SnapshotPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "YmxvYg==", snapshot.EncryptedBlob)

	rec = doRequest(h, http.MethodPost, "/api/sync/snapshot", `{"data_type":"contacts","encrypted_blob":"YmxvYg==","nonce":"bg==","checksum":"ff"}`, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, saved)
}
