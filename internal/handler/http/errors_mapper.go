package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// errorStatusMap lists errors whose status differs from the one of their
// kind. It is consulted first.
var errorStatusMap = map[error]int{
	service.ErrRecordNotFound:          http.StatusNotFound,
	store.ErrRecordNotFound:            http.StatusNotFound,
	models.ErrUnknownCollection:        http.StatusNotFound,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	ErrInvalidJSON:                     http.StatusBadRequest,
}

var kindStatusMap = map[app.Kind]int{
	app.KindAuth:       http.StatusUnauthorized,
	app.KindConflict:   http.StatusConflict,
	app.KindValidation: http.StatusUnprocessableEntity,
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          app.MsgInvalidDataProvided,
	http.StatusUnauthorized:        app.MsgTokenIsExpiredOrInvalid,
	http.StatusNotFound:            app.MsgRecordNotFound,
	http.StatusConflict:            app.MsgRecordAlreadyExists,
	http.StatusInternalServerError: app.MsgInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	if status, ok := kindStatusMap[app.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// messageFromError returns the response body text for err. Validation
// failures carry their own description; internal failures never do.
func messageFromError(err error, status int) string {
	switch {
	case errors.Is(err, models.ErrUnknownCollection):
		return app.MsgUnknownCollection
	case errors.Is(err, service.ErrEmptyPayload):
		return app.MsgEmptyPayload
	case errors.Is(err, service.ErrTempIDNotAllowed):
		return app.MsgTemporaryIDRejected
	case status == http.StatusUnprocessableEntity:
		return err.Error()
	}
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return http.StatusText(status)
}
