package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidUserID    = errors.New("invalid user ID")
	ErrEmptyPayload     = errors.New("empty payload")
	ErrMissingID        = errors.New("record id is required")
	ErrTempIDNotAllowed = errors.New("temporary ids are reserved for clients")
)
