// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func validRequest() models.RecordRequest {
	return models.RecordRequest{
		UserID:     "user-1",
		Collection: models.Transactions,
		ID:         "tx-1",
		Payload:    models.Record{"accountId": "acc-1", "amount": 12.5},
	}
}

var allFields = []string{FieldUserID, FieldCollection, FieldID, FieldPayload, FieldTempRefs}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestRecordValidator_Dispatch(t *testing.T) {
	v := NewRecordValidator()
	ctx := context.Background()

	t.Run("unsupported type", func(t *testing.T) {
		require.ErrorIs(t, v.Validate(ctx, "a string"), ErrUnsupportedType)
	})

	t.Run("value", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, validRequest(), allFields...))
	})

	t.Run("pointer", func(t *testing.T) {
		req := validRequest()
		require.NoError(t, v.Validate(ctx, &req, allFields...))
	})

	t.Run("unknown field", func(t *testing.T) {
		require.ErrorIs(t, v.Validate(ctx, validRequest(), "hash"), ErrUnknownField)
	})
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

func TestRecordValidator_Fields(t *testing.T) {
	v := NewRecordValidator()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(r *models.RecordRequest)
		fields  []string
		wantErr error
	}{
		{
			name:    "default fields ignore an empty payload",
			mutate:  func(r *models.RecordRequest) { r.Payload = nil },
			wantErr: nil,
		},
		{
			name:    "missing user",
			mutate:  func(r *models.RecordRequest) { r.UserID = "" },
			wantErr: ErrInvalidUserID,
		},
		{
			name:    "unknown collection",
			mutate:  func(r *models.RecordRequest) { r.Collection = "wallets" },
			wantErr: models.ErrUnknownCollection,
		},
		{
			name:    "missing id",
			mutate:  func(r *models.RecordRequest) { r.ID = "" },
			fields:  []string{FieldID},
			wantErr: ErrMissingID,
		},
		{
			name:    "payload with only an id",
			mutate:  func(r *models.RecordRequest) { r.Payload = models.Record{"id": "x"} },
			fields:  []string{FieldPayload},
			wantErr: ErrEmptyPayload,
		},
		{
			name:    "temporary reference in payload",
			mutate:  func(r *models.RecordRequest) { r.Payload["accountId"] = "temp_1_abcdef12" },
			fields:  []string{FieldTempRefs},
			wantErr: ErrTempIDNotAllowed,
		},
		{
			name:    "temporary target id",
			mutate:  func(r *models.RecordRequest) { r.ID = "temp_1_abcdef12" },
			fields:  []string{FieldTempRefs},
			wantErr: ErrTempIDNotAllowed,
		},
		{
			name:    "value sharing the prefix is user data",
			mutate:  func(r *models.RecordRequest) { r.Payload["name"] = "temp_savings" },
			fields:  []string{FieldTempRefs},
			wantErr: nil,
		},
		{
			name:    "scoped validation skips other fields",
			mutate:  func(r *models.RecordRequest) { r.UserID = ""; r.ID = "" },
			fields:  []string{FieldCollection, FieldPayload},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := v.Validate(ctx, req, tt.fields...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
