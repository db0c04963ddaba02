// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// recordService implements RecordService on top of a store.RecordRepository.
type recordService struct {
	records   store.RecordRepository
	hub       ChangeHub
	ids       IDGenerator
	validator validators.Validator

	logger *logger.Logger
}

// NewRecordService constructs the backend record service. ids assigns the
// server identifiers of inserted records.
func NewRecordService(records store.RecordRepository, hub ChangeHub, ids IDGenerator, logger *logger.Logger) RecordService {
	return &recordService{
		records:   records,
		hub:       hub,
		ids:       ids,
		validator: validators.NewRecordValidator(),
		logger:    logger,
	}
}

func (s *recordService) List(ctx context.Context, userID string, collection models.Collection) ([]models.Record, error) {
	const op = "records.List"
	log := logger.FromContext(ctx)

	req := models.RecordRequest{UserID: userID, Collection: collection}
	if err := s.validate(ctx, op, req); err != nil {
		return nil, err
	}

	records, err := s.records.List(ctx, userID, collection)
	if err != nil {
		log.Err(err).Str("collection", collection.String()).Msg("listing records failed")
		return nil, fmt.Errorf("listing records failed: %w", err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Insert rejects empty payloads and payloads referencing temporary ids:
// those belong to records the client has not confirmed yet.
func (s *recordService) Insert(ctx context.Context, userID string, collection models.Collection, payload models.Record) (models.Record, error) {
	const op = "records.Insert"
	log := logger.FromContext(ctx)

	req := models.RecordRequest{UserID: userID, Collection: collection, Payload: payload}
	if err := s.validate(ctx, op, req, validators.FieldUserID, validators.FieldCollection, validators.FieldPayload, validators.FieldTempRefs); err != nil {
		log.Warn().Err(err).Str("collection", collection.String()).Msg("insert rejected")
		return nil, err
	}
	body := payload.WithoutID()

	saved, err := s.records.Insert(ctx, userID, collection, body.WithID(s.ids.Generate()))
	if err != nil {
		log.Err(err).Str("collection", collection.String()).Msg("inserting record failed")
		if errors.Is(err, store.ErrRecordAlreadyExists) {
			return nil, app.E(app.KindConflict, op, err)
		}
		return nil, fmt.Errorf("inserting record failed: %w", err)
	}

	s.hub.Publish(ctx, userID, models.ChangeEvent{Kind: models.ChangeInsert, Collection: collection, Record: saved})
	return saved, nil
}

func (s *recordService) Update(ctx context.Context, userID string, collection models.Collection, id string, patch models.Record) (models.Record, error) {
	const op = "records.Update"
	log := logger.FromContext(ctx)

	body := patch.WithoutID()
	req := models.RecordRequest{UserID: userID, Collection: collection, ID: id, Payload: body}
	if err := s.validate(ctx, op, req, validators.FieldUserID, validators.FieldCollection, validators.FieldID, validators.FieldPayload, validators.FieldTempRefs); err != nil {
		return nil, err
	}

	updated, err := s.records.Update(ctx, userID, collection, id, body)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
	}
	if err != nil {
		log.Err(err).Str("collection", collection.String()).Str("id", id).Msg("updating record failed")
		return nil, fmt.Errorf("updating record failed: %w", err)
	}

	s.hub.Publish(ctx, userID, models.ChangeEvent{Kind: models.ChangeUpdate, Collection: collection, Record: updated})
	return updated, nil
}

func (s *recordService) Delete(ctx context.Context, userID string, collection models.Collection, id string) error {
	const op = "records.Delete"
	log := logger.FromContext(ctx)

	req := models.RecordRequest{UserID: userID, Collection: collection, ID: id}
	if err := s.validate(ctx, op, req, validators.FieldUserID, validators.FieldCollection, validators.FieldID); err != nil {
		return err
	}

	removed, err := s.records.Delete(ctx, userID, collection, id)
	if err != nil {
		log.Err(err).Str("collection", collection.String()).Str("id", id).Msg("deleting record failed")
		return fmt.Errorf("deleting record failed: %w", err)
	}

	if removed {
		s.hub.Publish(ctx, userID, models.ChangeEvent{Kind: models.ChangeDelete, Collection: collection, Record: models.Record{models.IDField: id}})
	}
	return nil
}

// validate runs the record validator; a missing owner is an auth failure,
// anything else a validation failure.
func (s *recordService) validate(ctx context.Context, op string, req models.RecordRequest, fields ...string) error {
	err := s.validator.Validate(ctx, req, fields...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, validators.ErrInvalidUserID):
		return app.E(app.KindAuth, op, err)
	default:
		return app.E(app.KindValidation, op, err)
	}
}
