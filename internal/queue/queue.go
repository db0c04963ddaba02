// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package queue implements the durable FIFO of mutations that have not been
// confirmed by the server yet.
package queue

import (
	"context"
	"strconv"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// PersistentQueue keeps pending operations in memory in enqueue order and
// writes every change through to a [store.OperationRepository].
//
// The queue mutex is held while persisting so the durable order always
// matches the in-memory one. Writes are not interrupted by a cancelled
// caller context. When the repository fails the queue logs the
// error and keeps working in memory for the rest of the session.
type PersistentQueue struct {
	userID string
	repo   store.OperationRepository
	logger *logger.Logger

	mu       sync.Mutex
	ops      []models.PendingOperation
	degraded bool
}

// New loads the persisted operations of userID. A nil repo or a failed load
// yields an in-memory queue.
func New(ctx context.Context, userID string, repo store.OperationRepository, log *logger.Logger) *PersistentQueue {
	if log == nil {
		log = logger.Nop()
	}
	q := &PersistentQueue{
		userID:   userID,
		repo:     repo,
		logger:   log,
		degraded: repo == nil,
	}
	if repo == nil {
		return q
	}

	ops, err := repo.List(ctx, userID)
	if err != nil {
		q.degrade("PersistentQueue.New", "", err)
		return q
	}
	q.ops = ops

	q.logger.Debug().
		Str("func", "PersistentQueue.New").
		Str("user_id", userID).
		Int("pending", len(ops)).
		Msg("pending operations restored")
	return q
}

// Enqueue appends op. A persistence failure does not lose the operation: it
// stays queued in memory and Degraded starts reporting true.
func (q *PersistentQueue) Enqueue(ctx context.Context, op models.PendingOperation) error {
	if err := op.Validate(); err != nil {
		return app.E(app.KindValidation, "queue.Enqueue", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	op.ID = q.uniqueIDLocked(op.ID)
	op.Data = op.Data.Clone()
	q.ops = append(q.ops, op)

	if !q.degraded {
		if err := q.repo.Append(context.WithoutCancel(ctx), q.userID, op); err != nil {
			q.degrade("PersistentQueue.Enqueue", op.ID, err)
		}
	}
	return nil
}

// uniqueIDLocked disambiguates operation ids generated within the same
// millisecond for the same target.
func (q *PersistentQueue) uniqueIDLocked(id string) string {
	candidate := id
	for n := 2; q.indexLocked(candidate) >= 0; n++ {
		candidate = id + "-" + strconv.Itoa(n)
	}
	return candidate
}

func (q *PersistentQueue) indexLocked(opID string) int {
	for i, op := range q.ops {
		if op.ID == opID {
			return i
		}
	}
	return -1
}

// DequeueAll returns a copy of every pending operation in enqueue order.
// The queue itself is left unchanged; confirmed operations are removed one
// by one with Remove.
func (q *PersistentQueue) DequeueAll() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.PendingOperation, len(q.ops))
	for i, op := range q.ops {
		op.Data = op.Data.Clone()
		out[i] = op
	}
	return out
}

// Remove drops the operation with the given id. Unknown ids are ignored.
func (q *PersistentQueue) Remove(ctx context.Context, opID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(opID)
	if i < 0 {
		return nil
	}
	q.ops = append(q.ops[:i:i], q.ops[i+1:]...)

	if !q.degraded {
		if err := q.repo.Delete(context.WithoutCancel(ctx), q.userID, opID); err != nil {
			q.degrade("PersistentQueue.Remove", opID, err)
		}
	}
	return nil
}

// Count returns the number of pending operations.
func (q *PersistentQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.ops)
}

// HasPending reports whether any operation of collection is queued.
func (q *PersistentQueue) HasPending(collection models.Collection) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, op := range q.ops {
		if op.Collection == collection {
			return true
		}
	}
	return false
}

// Pending returns the queued operations of collection in enqueue order.
func (q *PersistentQueue) Pending(collection models.Collection) []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.PendingOperation
	for _, op := range q.ops {
		if op.Collection == collection {
			op.Data = op.Data.Clone()
			out = append(out, op)
		}
	}
	return out
}

// PendingInsertIDs returns the temporary ids created by queued inserts.
func (q *PersistentQueue) PendingInsertIDs() map[string]struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]struct{})
	for _, op := range q.ops {
		if op.Kind == models.OperationInsert && models.IsTempID(op.TargetID()) {
			out[op.TargetID()] = struct{}{}
		}
	}
	return out
}

// RewriteID replaces tempID with serverID in every queued payload and
// returns the number of rewritten operations.
func (q *PersistentQueue) RewriteID(ctx context.Context, tempID, serverID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	rewritten := 0
	for i, op := range q.ops {
		next, changed := op.RewriteID(tempID, serverID)
		if !changed {
			continue
		}
		q.ops[i] = next
		rewritten++

		if !q.degraded {
			if err := q.repo.Replace(context.WithoutCancel(ctx), q.userID, next); err != nil {
				q.degrade("PersistentQueue.RewriteID", next.ID, err)
			}
		}
	}
	return rewritten
}

// Degraded reports whether the queue lost its durable backing.
func (q *PersistentQueue) Degraded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.degraded && q.repo != nil
}

func (q *PersistentQueue) degrade(fn, opID string, err error) {
	q.degraded = true
	q.logger.Err(app.E(app.KindStorage, "queue.persist", err)).
		Str("func", fn).
		Str("user_id", q.userID).
		Str("op_id", opID).
		Msg("durable queue unavailable, continuing in memory")
}
