// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

func TestHistory_PagingParametersReachTheService(t *testing.T) {
	audit := &mockAuditService{
		historyFn: func(_ context.Context, userID int64, limit, offset int) (models.AuditPage, error) {
			assert.EqualValues(t, 7, userID)
			assert.Equal(t, 25, limit)
			assert.Equal(t, 50, offset)
			return models.AuditPage{
				Entries:    []models.AuditEntry{{ID: 1, DeviceID: "device-a", Action: models.AuditUpload, Success: true}},
				Pagination: models.Pagination{TotalChanges: 1},
			}, nil
		},
	}
	h := newTestHandler(okTokenAuth(), nil, nil, audit)

	rec := doRequest(h, http.MethodGet, "/api/audit?limit=25&offset=50", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.AuditPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, models.AuditUpload, page.Entries[0].Action)
}

func TestExportHistory_StreamsCSV(t *testing.T) {
	audit := &mockAuditService{
		exportCSVFn: func(_ context.Context, userID int64, w io.Writer) error {
			assert.EqualValues(t, 7, userID)
			_, err := w.Write([]byte("id,device_id,action\n1,device-a,upload\n"))
			return err
		},
	}
	h := newTestHandler(okTokenAuth(), nil, nil, audit)

	rec := doRequest(h, http.MethodGet, "/api/audit/export", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sync_history.csv")
	assert.Contains(t, rec.Body.String(), "device-a,upload")
}
