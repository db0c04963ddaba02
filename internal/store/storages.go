package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
)

// Storages groups the backend repositories.
type Storages struct {
	RecordRepository RecordRepository

	close func() error
}

// NewStorages opens Postgres when dsn is set and falls back to an in-memory
// record store otherwise.
func NewStorages(ctx context.Context, dsn string, log *logger.Logger) (*Storages, error) {
	if dsn == "" {
		log.Warn().Str("func", "NewStorages").Msg("no database DSN configured, records are kept in memory")
		return &Storages{
			RecordRepository: NewMemoryRecordRepository(),
			close:            func() error { return nil },
		}, nil
	}

	db, err := NewConnectPostgres(ctx, dsn, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	return &Storages{
		RecordRepository: NewRecordRepository(db, log),
		close:            db.Close,
	}, nil
}

func (s *Storages) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
