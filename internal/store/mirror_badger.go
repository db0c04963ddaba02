package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const mirrorKeyPrefix = "mirror/"

type badgerMirrorConfig struct {
	inMemory bool
}

// BadgerMirrorOption customizes how the Badger mirror is opened.
type BadgerMirrorOption func(*badgerMirrorConfig)

// WithBadgerInMemory keeps the mirror in memory only. Used by tests.
func WithBadgerInMemory() BadgerMirrorOption {
	return func(cfg *badgerMirrorConfig) {
		cfg.inMemory = true
	}
}

// BadgerMirror is a [MirrorRepository] over an embedded Badger database.
// Snapshots are stored msgpack-encoded under mirror/<user>/<collection>.
type BadgerMirror struct {
	db     *badger.DB
	logger *logger.Logger
}

// NewBadgerMirror opens (creating if needed) a Badger database in dir.
func NewBadgerMirror(dir string, log *logger.Logger, options ...BadgerMirrorOption) (*BadgerMirror, error) {
	var cfg badgerMirrorConfig
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}

	opts := badger.DefaultOptions(dir)
	if cfg.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		log.Err(err).Str("func", "NewBadgerMirror").Str("dir", dir).Msg("error opening badger mirror")
		return nil, fmt.Errorf("error opening badger mirror: %w", err)
	}

	return &BadgerMirror{db: db, logger: log}, nil
}

func mirrorKey(userID string, collection models.Collection) []byte {
	return []byte(mirrorKeyPrefix + userID + "/" + string(collection))
}

func (m *BadgerMirror) Save(_ context.Context, userID string, collection models.Collection, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	payload, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode mirror of %s: %w", collection, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mirrorKey(userID, collection), payload)
	})
	if err != nil {
		m.logger.Err(err).
			Str("func", "BadgerMirror.Save").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Msg("failed to write mirror")
		return app.E(app.KindStorage, "BadgerMirror.Save", err)
	}
	return nil
}

func (m *BadgerMirror) Load(_ context.Context, userID string, collection models.Collection) ([]models.Record, bool, error) {
	var payload []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mirrorKey(userID, collection))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		m.logger.Err(err).
			Str("func", "BadgerMirror.Load").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Msg("failed to read mirror")
		return nil, false, app.E(app.KindStorage, "BadgerMirror.Load", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)

	var records []models.Record
	if err = dec.Decode(&records); err != nil {
		return nil, false, fmt.Errorf("%w: mirror of %s: %v", ErrCorruptedEntry, collection, err)
	}
	return records, true, nil
}

// Close flushes and closes the Badger database.
func (m *BadgerMirror) Close() error {
	return m.db.Close()
}
