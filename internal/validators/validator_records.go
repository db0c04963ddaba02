package validators

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// Field names accepted by RecordValidator.
const (
	// FieldUserID requires an authenticated owner.
	FieldUserID = "user_id"

	// FieldCollection requires a registered collection.
	FieldCollection = "collection"

	// FieldID requires a target record id.
	FieldID = "id"

	// FieldPayload requires at least one field besides the id.
	FieldPayload = "payload"

	// FieldTempRefs rejects temporary ids anywhere in the id or the payload.
	// Temporary ids name records the server has never confirmed.
	FieldTempRefs = "temp_refs"
)

// RecordValidator validates models.RecordRequest values.
type RecordValidator struct{}

func NewRecordValidator() Validator {
	return &RecordValidator{}
}

// Validate checks obj, a models.RecordRequest or a pointer to one. Without
// fields only the scope (user and collection) is checked.
func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RecordRequest:
		return v.validateRecordRequest(ctx, value, fields...)
	case *models.RecordRequest:
		return v.validateRecordRequest(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateRecordRequest(_ context.Context, req models.RecordRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldUserID, FieldCollection}
	}

	for _, f := range fields {
		switch f {
		case FieldUserID:
			if req.UserID == "" {
				return ErrInvalidUserID
			}
		case FieldCollection:
			if !req.Collection.Valid() {
				return fmt.Errorf("%w: %q", models.ErrUnknownCollection, req.Collection)
			}
		case FieldID:
			if req.ID == "" {
				return ErrMissingID
			}
		case FieldPayload:
			if len(req.Payload.WithoutID()) == 0 {
				return ErrEmptyPayload
			}
		case FieldTempRefs:
			target := req.Payload
			if req.ID != "" {
				target = target.WithID(req.ID)
			}
			if ids := models.TempIDsIn(target); len(ids) > 0 {
				return fmt.Errorf("%w: %s", ErrTempIDNotAllowed, ids[0])
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
