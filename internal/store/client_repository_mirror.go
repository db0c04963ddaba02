package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type mirrorRepository struct {
	*DB
	logger *logger.Logger
}

// NewMirrorRepository returns a mirror stored in the client SQLite file, one
// JSON array per (user, collection).
func NewMirrorRepository(db *DB, logger *logger.Logger) MirrorRepository {
	return &mirrorRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *mirrorRepository) Save(ctx context.Context, userID string, collection models.Collection, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode mirror of %s: %w", collection, err)
	}

	if _, err = r.DB.ExecContext(ctx, saveMirror, userID, string(collection), string(payload), time.Now().UnixMilli()); err != nil {
		r.logger.Err(err).
			Str("func", "mirrorRepository.Save").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Msg("failed to write mirror")
		return r.classify("mirrorRepository.Save", err)
	}
	return nil
}

func (r *mirrorRepository) Load(ctx context.Context, userID string, collection models.Collection) ([]models.Record, bool, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, loadMirror, userID, string(collection)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "mirrorRepository.Load").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Msg("failed to read mirror")
		return nil, false, r.classify("mirrorRepository.Load", err)
	}

	var records []models.Record
	if err = json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, false, fmt.Errorf("%w: mirror of %s: %v", ErrCorruptedEntry, collection, err)
	}
	return records, true, nil
}
