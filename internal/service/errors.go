package service

import (
	"errors"

	"github.com/MKhiriev/go-sync-keeper/internal/validators"
)

var (
	// ErrSyncInProgress is returned by Drain while another drain is running.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrStopped        = errors.New("sync coordinator stopped")
	ErrOffline        = errors.New("backend is not reachable")

	ErrEmptyPayload      = validators.ErrEmptyPayload
	ErrMissingID         = validators.ErrMissingID
	ErrTempIDNotAllowed  = validators.ErrTempIDNotAllowed
	ErrRecordNotFound    = errors.New("record not found")
	ErrUnconfirmedInsert = errors.New("record was never confirmed by the server")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
)
