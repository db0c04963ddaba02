package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type idMappingRepository struct {
	*DB
	logger *logger.Logger
}

func NewIDMappingRepository(db *DB, logger *logger.Logger) IDMappingRepository {
	return &idMappingRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *idMappingRepository) Save(ctx context.Context, userID string, collection models.Collection, tempID, serverID string) error {
	if _, err := r.DB.ExecContext(ctx, saveIDMapping, userID, tempID, serverID, string(collection), time.Now().UnixMilli()); err != nil {
		r.logger.Err(err).
			Str("func", "idMappingRepository.Save").
			Str("temp_id", tempID).
			Str("server_id", serverID).
			Msg("failed to persist id mapping")
		return r.classify("idMappingRepository.Save", err)
	}
	return nil
}

func (r *idMappingRepository) All(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, listIDMappings, userID)
	if err != nil {
		r.logger.Err(err).
			Str("func", "idMappingRepository.All").
			Str("user_id", userID).
			Msg("failed to query id mappings")
		return nil, r.classify("idMappingRepository.All", err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var tempID, serverID string
		if err = rows.Scan(&tempID, &serverID); err != nil {
			return nil, r.classify("idMappingRepository.All", err)
		}
		mappings[tempID] = serverID
	}
	if err = rows.Err(); err != nil {
		return nil, r.classify("idMappingRepository.All", err)
	}
	return mappings, nil
}

func (r *idMappingRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.DB.ExecContext(ctx, clearIDMappings, userID); err != nil {
		return r.classify("idMappingRepository.Clear", err)
	}
	return nil
}
