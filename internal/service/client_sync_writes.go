package service

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// Insert creates a record. The record is visible in the cache immediately
// under a temporary id. When the backend is reachable and nothing is queued
// for col it is sent right away and the temporary id is replaced by the
// server one; otherwise the insert is queued and Queued is set.
func (c *SyncCoordinator) Insert(ctx context.Context, col models.Collection, payload models.Record) models.WriteResult {
	const op = "coordinator.Insert"

	if err := c.checkWrite(op, col); err != nil {
		return models.WriteResult{Err: err}
	}
	body := payload.WithoutID()
	if len(body) == 0 {
		return models.WriteResult{Err: app.E(app.KindValidation, op, ErrEmptyPayload)}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	body = c.resolveRecord(body)
	tempID := models.NewTempID(c.now())
	record := body.WithID(tempID)
	c.cache.ApplyInsert(ctx, col, record)

	rollback := func() { c.cache.ApplyRemove(ctx, col, tempID) }
	queueIt := func(behind bool) models.WriteResult {
		return c.enqueue(ctx, models.NewInsertOperation(col, record, c.now()), record, rollback, behind)
	}

	if !c.canSendDirect(col, body) {
		return queueIt(true)
	}

	confirmed, err := c.gateway.Insert(ctx, col, body)
	switch {
	case err == nil:
		c.reconcile(ctx, col, tempID, confirmed)
		return models.WriteResult{Data: confirmed}
	case app.KindOf(err) == app.KindNetwork:
		return queueIt(false)
	default:
		rollback()
		c.writeRejected(op, col, tempID, err)
		return models.WriteResult{Err: err}
	}
}

// Update merges patch into the record with the given id, optimistically
// first and then on the server or through the queue.
func (c *SyncCoordinator) Update(ctx context.Context, col models.Collection, id string, patch models.Record) models.WriteResult {
	const op = "coordinator.Update"

	if err := c.checkWrite(op, col); err != nil {
		return models.WriteResult{Err: err}
	}
	if id == "" {
		return models.WriteResult{Err: app.E(app.KindValidation, op, ErrMissingID)}
	}
	body := patch.WithoutID()
	if len(body) == 0 {
		return models.WriteResult{Err: app.E(app.KindValidation, op, ErrEmptyPayload)}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	id = c.resolveID(id)
	body = c.resolveRecord(body)

	prev, found := c.find(col, id)
	c.cache.ApplyUpdate(ctx, col, id, body)
	optimistic, ok := c.find(col, id)
	if !ok {
		optimistic = body.WithID(id)
	}

	rollback := func() {
		if found {
			c.cache.ApplyReplace(ctx, col, id, prev)
		}
	}
	queueIt := func(behind bool) models.WriteResult {
		return c.enqueue(ctx, models.NewUpdateOperation(col, id, body, c.now()), optimistic, rollback, behind)
	}

	if models.IsTempID(id) || !c.canSendDirect(col, body) {
		return queueIt(true)
	}

	confirmed, err := c.gateway.Update(ctx, col, id, body)
	switch {
	case err == nil:
		c.cache.ApplyReplace(ctx, col, id, confirmed)
		return models.WriteResult{Data: confirmed}
	case app.KindOf(err) == app.KindNetwork:
		return queueIt(false)
	default:
		rollback()
		c.writeRejected(op, col, id, err)
		return models.WriteResult{Err: err}
	}
}

// Remove deletes the record with the given id.
func (c *SyncCoordinator) Remove(ctx context.Context, col models.Collection, id string) models.WriteResult {
	const op = "coordinator.Remove"

	if err := c.checkWrite(op, col); err != nil {
		return models.WriteResult{Err: err}
	}
	if id == "" {
		return models.WriteResult{Err: app.E(app.KindValidation, op, ErrMissingID)}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	id = c.resolveID(id)
	prev, found := c.find(col, id)
	c.cache.ApplyRemove(ctx, col, id)

	rollback := func() {
		if found {
			c.cache.ApplyInsert(ctx, col, prev)
		}
	}
	queueIt := func(behind bool) models.WriteResult {
		return c.enqueue(ctx, models.NewDeleteOperation(col, id, c.now()), nil, rollback, behind)
	}

	if models.IsTempID(id) || !c.canSendDirect(col, nil) {
		return queueIt(true)
	}

	err := c.gateway.Delete(ctx, col, id)
	switch {
	case err == nil:
		return models.WriteResult{}
	case app.KindOf(err) == app.KindNetwork:
		return queueIt(false)
	default:
		rollback()
		c.writeRejected(op, col, id, err)
		return models.WriteResult{Err: err}
	}
}

func (c *SyncCoordinator) checkWrite(op string, col models.Collection) error {
	if !col.Valid() {
		return app.E(app.KindValidation, op, models.ErrUnknownCollection)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return app.E(app.KindUnknown, op, ErrStopped)
	}
	return nil
}

// canSendDirect reports whether a write can skip the queue: the backend is
// reachable, no drain is running, nothing of col is waiting in the queue
// and body references no unconfirmed temp id.
func (c *SyncCoordinator) canSendDirect(col models.Collection, body models.Record) bool {
	return c.monitor.IsOnline() &&
		!c.syncing.Load() &&
		!c.queue.HasPending(col) &&
		len(models.TempIDsIn(body)) == 0
}

// enqueue stores op in the queue. behind is set when the write was queued
// without trying the backend; if the backend is reachable the backlog is then
// replayed in the background so the write does not wait for a reconnect.
func (c *SyncCoordinator) enqueue(ctx context.Context, op models.PendingOperation, data models.Record, rollback func(), behind bool) models.WriteResult {
	if err := c.queue.Enqueue(ctx, op); err != nil {
		rollback()
		return models.WriteResult{Err: err}
	}
	if behind {
		c.scheduleDrain()
	}

	c.logger.Debug().
		Str("func", "SyncCoordinator.enqueue").
		Str("collection", op.Collection.String()).
		Str("operation", string(op.Kind)).
		Str("target", op.TargetID()).
		Msg("write queued")
	return models.WriteResult{Data: data, Queued: true}
}

// scheduleDrain starts a background drain when the coordinator is running,
// the backend is reachable and no drain is in progress. A drain already
// running picks up new operations in its next pass.
func (c *SyncCoordinator) scheduleDrain() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	if started && c.monitor.IsOnline() && !c.syncing.Load() {
		c.goBackground(c.reconnect)
	}
}

func (c *SyncCoordinator) find(col models.Collection, id string) (models.Record, bool) {
	for _, r := range c.cache.Get(col).Records {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

func (c *SyncCoordinator) writeRejected(op string, col models.Collection, id string, err error) {
	c.logger.Warn().Err(err).
		Str("func", op).
		Str("collection", col.String()).
		Str("id", id).
		Str("kind", app.KindOf(err).String()).
		Msg("write rejected, optimistic change rolled back")
}
