package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-chi/chi/v5"
)

type collectionCtxKey struct{}

// maxBodySize bounds the JSON body of a write.
const maxBodySize = 1 << 20

// withCollection resolves the {collection} path segment. Unknown names are
// answered with 404.
func (h *Handler) withCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		collection, err := models.ParseCollection(chi.URLParam(r, "collection"))
		if err != nil {
			logger.FromRequest(r).Warn().Err(err).Str("func", "*Handler.withCollection").Send()
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), collectionCtxKey{}, collection)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// scope returns the authenticated user and the resolved collection of r.
func scope(r *http.Request) (string, models.Collection) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	collection, _ := r.Context().Value(collectionCtxKey{}).(models.Collection)
	return userID, collection
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	userID, collection := scope(r)

	records, err := h.services.RecordService.List(r.Context(), userID, collection)
	if err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.listRecords").Msg("error listing records")
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, records, http.StatusOK)
}

func (h *Handler) insertRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	userID, collection := scope(r)

	payload, err := decodeRecord(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.insertRecord").Msg("invalid JSON was passed")
		writeError(w, r, err)
		return
	}

	saved, err := h.services.RecordService.Insert(r.Context(), userID, collection, payload)
	if err != nil {
		log.Err(err).Str("func", "*Handler.insertRecord").Msg("error inserting record")
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, saved, http.StatusCreated)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	userID, collection := scope(r)
	id := chi.URLParam(r, "id")

	patch, err := decodeRecord(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.updateRecord").Msg("invalid JSON was passed")
		writeError(w, r, err)
		return
	}

	updated, err := h.services.RecordService.Update(r.Context(), userID, collection, id, patch)
	if err != nil {
		log.Err(err).Str("func", "*Handler.updateRecord").Str("id", id).Msg("error updating record")
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, updated, http.StatusOK)
}

// deleteRecord answers 204 whether or not the record existed.
func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	userID, collection := scope(r)
	id := chi.URLParam(r, "id")

	if err := h.services.RecordService.Delete(r.Context(), userID, collection, id); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.deleteRecord").Str("id", id).Msg("error deleting record")
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (models.Record, error) {
	var record models.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if record == nil {
		return nil, ErrInvalidJSON
	}
	return record, nil
}

// writeError answers with the status of err and a {"error": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		logger.FromRequest(r).Err(app.E(app.KindOf(err), "http.response", err)).Msg("request failed")
	}
	utils.WriteError(w, messageFromError(err, status), status)
}
