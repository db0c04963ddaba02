package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
)

// ClientStorages groups all client-side durable repositories: the queue,
// the snapshot mirror and the temp-id table.
type ClientStorages struct {
	Operations OperationRepository
	Mirror     MirrorRepository
	IDMappings IDMappingRepository

	closers []func() error
}

// NewClientStorages initialises the client storage layer:
//  1. Opens the SQLite file at cfg.Path, creating it and running migrations.
//  2. Builds the queue and temp-id repositories over it.
//  3. Builds the mirror over the same file, or over Badger when
//     cfg.MirrorDriver is "badger".
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Str("func", "NewClientStorages").Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.Path, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	s := &ClientStorages{
		Operations: NewOperationRepository(db, log),
		IDMappings: NewIDMappingRepository(db, log),
		closers:    []func() error{db.Close},
	}

	switch cfg.MirrorDriver {
	case config.MirrorDriverBadger:
		mirror, err := NewBadgerMirror(cfg.BadgerDir, log)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Mirror = mirror
		s.closers = append(s.closers, mirror.Close)
	default:
		s.Mirror = NewMirrorRepository(db, log)
	}

	return s, nil
}

// NewMemoryClientStorages returns storages that live only as long as the
// process.
func NewMemoryClientStorages() *ClientStorages {
	return &ClientStorages{
		Operations: NewMemoryOperationRepository(),
		Mirror:     NewMemoryMirror(),
		IDMappings: NewMemoryIDMappingRepository(),
	}
}

// Close releases every underlying database, last opened first.
func (s *ClientStorages) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
