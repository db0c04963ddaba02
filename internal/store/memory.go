package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// MemoryOperationRepository is an in-process [OperationRepository].
type MemoryOperationRepository struct {
	mu  sync.Mutex
	ops map[string][]models.PendingOperation
}

func NewMemoryOperationRepository() *MemoryOperationRepository {
	return &MemoryOperationRepository{ops: make(map[string][]models.PendingOperation)}
}

func (r *MemoryOperationRepository) Append(_ context.Context, userID string, op models.PendingOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ops[userID] {
		if existing.ID == op.ID {
			return fmt.Errorf("%w: operation %s", ErrRecordAlreadyExists, op.ID)
		}
	}
	r.ops[userID] = append(r.ops[userID], cloneOperation(op))
	return nil
}

func (r *MemoryOperationRepository) Replace(_ context.Context, userID string, op models.PendingOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.ops[userID] {
		if existing.ID == op.ID {
			r.ops[userID][i] = cloneOperation(op)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOperationNotFound, op.ID)
}

func (r *MemoryOperationRepository) Delete(_ context.Context, userID, opID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := r.ops[userID]
	for i, existing := range ops {
		if existing.ID == opID {
			r.ops[userID] = append(ops[:i:i], ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryOperationRepository) List(_ context.Context, userID string) ([]models.PendingOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.PendingOperation, 0, len(r.ops[userID]))
	for _, op := range r.ops[userID] {
		out = append(out, cloneOperation(op))
	}
	return out, nil
}

func cloneOperation(op models.PendingOperation) models.PendingOperation {
	op.Data = op.Data.Clone()
	return op
}

// MemoryMirror is an in-process [MirrorRepository].
type MemoryMirror struct {
	mu        sync.Mutex
	snapshots map[string][]models.Record
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{snapshots: make(map[string][]models.Record)}
}

func (m *MemoryMirror) Save(_ context.Context, userID string, collection models.Collection, records []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[string(mirrorKey(userID, collection))] = cloneRecords(records)
	return nil
}

func (m *MemoryMirror) Load(_ context.Context, userID string, collection models.Collection) ([]models.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.snapshots[string(mirrorKey(userID, collection))]
	if !ok {
		return nil, false, nil
	}
	return cloneRecords(records), true, nil
}

// MemoryIDMappingRepository is an in-process [IDMappingRepository].
type MemoryIDMappingRepository struct {
	mu       sync.Mutex
	mappings map[string]map[string]string
}

func NewMemoryIDMappingRepository() *MemoryIDMappingRepository {
	return &MemoryIDMappingRepository{mappings: make(map[string]map[string]string)}
}

func (r *MemoryIDMappingRepository) Save(_ context.Context, userID string, _ models.Collection, tempID, serverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mappings[userID] == nil {
		r.mappings[userID] = make(map[string]string)
	}
	r.mappings[userID][tempID] = serverID
	return nil
}

func (r *MemoryIDMappingRepository) All(_ context.Context, userID string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.mappings[userID]))
	for k, v := range r.mappings[userID] {
		out[k] = v
	}
	return out, nil
}

func (r *MemoryIDMappingRepository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.mappings, userID)
	return nil
}

// MemoryRecordRepository is the backend record store used when no database
// DSN is configured.
type MemoryRecordRepository struct {
	mu      sync.RWMutex
	seq     int64
	records map[string]map[string]memoryRecord
}

type memoryRecord struct {
	seq    int64
	record models.Record
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{records: make(map[string]map[string]memoryRecord)}
}

func partitionKey(userID string, collection models.Collection) string {
	return userID + "/" + string(collection)
}

func (r *MemoryRecordRepository) List(_ context.Context, userID string, collection models.Collection) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	part := r.records[partitionKey(userID, collection)]
	entries := make([]memoryRecord, 0, len(part))
	for _, e := range part {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]models.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record.Clone())
	}
	return out, nil
}

func (r *MemoryRecordRepository) Insert(_ context.Context, userID string, collection models.Collection, record models.Record) (models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := partitionKey(userID, collection)
	if r.records[key] == nil {
		r.records[key] = make(map[string]memoryRecord)
	}
	id := record.ID()
	if _, exists := r.records[key][id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRecordAlreadyExists, id)
	}

	r.seq++
	r.records[key][id] = memoryRecord{seq: r.seq, record: record.Clone()}
	return record.Clone(), nil
}

func (r *MemoryRecordRepository) Update(_ context.Context, userID string, collection models.Collection, id string, patch models.Record) (models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := partitionKey(userID, collection)
	existing, ok := r.records[key][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	existing.record = existing.record.Merge(patch)
	r.records[key][id] = existing
	return existing.record.Clone(), nil
}

func (r *MemoryRecordRepository) Delete(_ context.Context, userID string, collection models.Collection, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := partitionKey(userID, collection)
	if _, ok := r.records[key][id]; !ok {
		return false, nil
	}
	delete(r.records[key], id)
	return true, nil
}

func cloneRecords(records []models.Record) []models.Record {
	if records == nil {
		return nil
	}
	out := make([]models.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
