package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- getTokenFromAuthHeader ----

func TestGetTokenFromAuthHeader_TableTest(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   error
	}{
		{name: "valid Bearer token", header: "Bearer my-jwt-token", wantToken: "my-jwt-token"},
		{name: "scheme is case insensitive", header: "bearer abc", wantToken: "abc"},
		{name: "surrounding spaces", header: "  Bearer  abc  ", wantToken: "abc"},
		{name: "no token", header: "Bearer", wantErr: ErrInvalidAuthorizationHeader},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidAuthorizationHeader},
		{name: "blank token", header: "Bearer    ", wantErr: ErrInvalidAuthorizationHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := getTokenFromAuthHeader(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

// ---- withTraceID ----

func TestWithTraceID_ReusesOrGenerates(t *testing.T) {
	h := &Handler{logger: logger.Nop()}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(traceIDHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.withTraceID(next).ServeHTTP(rr, req)
	assert.Equal(t, "trace-1", rr.Header().Get(traceIDHeader))

	rr = httptest.NewRecorder()
	h.withTraceID(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Len(t, rr.Header().Get(traceIDHeader), 36)
}

// ---- responseWriter ----

func TestResponseWriter_RecordsStatusAndSize(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rr}

	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	w.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, w.status, "implicit header wins")
	assert.Equal(t, 5, w.size)
	assert.Equal(t, http.StatusOK, rr.Code)

	_, _, err = w.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}

// ---- error mapping ----

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth kind", app.E(app.KindAuth, "op", errors.New("x")), http.StatusUnauthorized},
		{"conflict kind", app.E(app.KindConflict, "op", store.ErrRecordAlreadyExists), http.StatusConflict},
		{"validation kind", app.E(app.KindValidation, "op", service.ErrEmptyPayload), http.StatusUnprocessableEntity},
		{"missing record", fmt.Errorf("%w: %w", service.ErrRecordNotFound, store.ErrRecordNotFound), http.StatusNotFound},
		{"unknown collection", app.E(app.KindValidation, "op", models.ErrUnknownCollection), http.StatusNotFound},
		{"bad json", ErrInvalidJSON, http.StatusBadRequest},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}

func TestMessageFromError_HidesInternalDetails(t *testing.T) {
	err := errors.New("pq: password authentication failed for user admin")

	assert.Equal(t, app.MsgInternalServerError, messageFromError(err, http.StatusInternalServerError))
}
