package store

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the backend's record store, partitioned by user and
// collection.
type RecordRepository interface {
	List(ctx context.Context, userID string, collection models.Collection) ([]models.Record, error)
	// Insert stores record, which must carry its final id.
	Insert(ctx context.Context, userID string, collection models.Collection, record models.Record) (models.Record, error)
	// Update merges patch into the stored record and returns the result.
	Update(ctx context.Context, userID string, collection models.Collection, id string, patch models.Record) (models.Record, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, userID string, collection models.Collection, id string) (bool, error)
}

// OperationRepository persists the client's pending operations in enqueue
// order.
type OperationRepository interface {
	Append(ctx context.Context, userID string, op models.PendingOperation) error
	// Replace overwrites the stored entry with the same id, keeping its
	// position in the queue.
	Replace(ctx context.Context, userID string, op models.PendingOperation) error
	Delete(ctx context.Context, userID, opID string) error
	List(ctx context.Context, userID string) ([]models.PendingOperation, error)
}

// MirrorRepository keeps the last-known-good records of each collection,
// keyed by (collection, user).
type MirrorRepository interface {
	Save(ctx context.Context, userID string, collection models.Collection, records []models.Record) error
	// Load returns found == false when nothing was ever saved for the key.
	Load(ctx context.Context, userID string, collection models.Collection) (records []models.Record, found bool, err error)
}

// IDMappingRepository is the durable temp-id lookup table consulted when
// queued operations are replayed.
type IDMappingRepository interface {
	Save(ctx context.Context, userID string, collection models.Collection, tempID, serverID string) error
	All(ctx context.Context, userID string) (map[string]string, error)
	Clear(ctx context.Context, userID string) error
}
