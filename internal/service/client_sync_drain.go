package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// Drain replays the queue in order. Operations rejected for good
// (validation, conflict) are dropped and reported; network and auth
// failures stay queued and hold back the later operations of their
// collection. Listeners registered with OnDrainComplete receive the report,
// then every active collection is refetched.
//
// Only one drain runs at a time; a concurrent call returns
// ErrSyncInProgress.
func (c *SyncCoordinator) Drain(ctx context.Context) (models.DrainReport, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		return models.DrainReport{}, ErrSyncInProgress
	}

	report, visited := c.drainPasses(ctx)
	c.syncing.Store(false)

	c.logger.Info().
		Str("func", "SyncCoordinator.Drain").
		Str("user_id", c.userID).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("deferred", report.Deferred).
		Int("pending", c.queue.Count()).
		Msg("queue drained")

	c.notifyDrain(report)
	c.refreshActive(ctx)

	// writes queued after the last pass but before the guard was released
	for _, op := range c.queue.DequeueAll() {
		if _, ok := visited[op.ID]; !ok && c.monitor.IsOnline() {
			c.goBackground(c.reconnect)
			break
		}
	}
	return report, nil
}

// drainPasses replays queued operations until a pass finds nothing new.
// Operations queued while the drain runs are picked up by the next pass.
func (c *SyncCoordinator) drainPasses(ctx context.Context) (models.DrainReport, map[string]struct{}) {
	var report models.DrainReport
	visited := make(map[string]struct{})
	blocked := make(map[models.Collection]bool)

	for {
		var batch []models.PendingOperation
		for _, op := range c.queue.DequeueAll() {
			if _, ok := visited[op.ID]; !ok {
				batch = append(batch, op)
			}
		}
		if len(batch) == 0 {
			return report, visited
		}

		for _, op := range batch {
			visited[op.ID] = struct{}{}
			if blocked[op.Collection] || ctx.Err() != nil {
				report.Deferred++
				continue
			}
			c.replay(ctx, op, &report, blocked)
		}
	}
}

func (c *SyncCoordinator) replay(ctx context.Context, op models.PendingOperation, report *models.DrainReport, blocked map[models.Collection]bool) {
	// confirmed before a restart but not removed from the queue
	if op.Kind == models.OperationInsert {
		if serverID, ok := c.confirmedInsert(op); ok {
			c.logger.Info().
				Str("func", "SyncCoordinator.replay").
				Str("operation_id", op.ID).
				Str("server_id", serverID).
				Msg("insert already confirmed, removing from queue")
			c.removeOperation(ctx, op)
			report.Succeeded++
			return
		}
	}

	if rewritten, changed := op.Data.ReplaceIDs(c.idMapCopy()); changed {
		op.Data = rewritten
	}

	pendingInserts := c.queue.PendingInsertIDs()
	for _, dep := range op.Dependencies() {
		if _, queued := pendingInserts[dep]; queued {
			c.logger.Debug().
				Str("func", "SyncCoordinator.replay").
				Str("operation_id", op.ID).
				Str("depends_on", dep).
				Msg("operation deferred until its insert is confirmed")
			report.Deferred++
			blocked[op.Collection] = true
			return
		}
	}

	// the insert of a temp target was dropped, nothing exists remotely
	if op.Kind != models.OperationInsert && models.IsTempID(op.TargetID()) {
		if op.Kind == models.OperationDelete {
			c.removeOperation(ctx, op)
			report.Succeeded++
			return
		}
		err := app.E(app.KindValidation, "coordinator.replay", fmt.Errorf("%w: %s", ErrUnconfirmedInsert, op.TargetID()))
		c.replayFailed(ctx, op, err, report, blocked)
		return
	}

	confirmed, err := c.send(ctx, op)
	if err != nil {
		c.replayFailed(ctx, op, err, report, blocked)
		return
	}

	if op.Kind == models.OperationInsert {
		c.reconcile(ctx, op.Collection, op.TargetID(), confirmed)
	}
	c.removeOperation(ctx, op)
	report.Succeeded++
}

// confirmedInsert recognises an INSERT whose confirmation was recorded
// before the process stopped: either its payload already carries the server
// id or the temp-id table knows it.
func (c *SyncCoordinator) confirmedInsert(op models.PendingOperation) (string, bool) {
	target := op.TargetID()
	if !models.IsTempID(target) {
		return target, target != ""
	}
	return c.lookup(target)
}

func (c *SyncCoordinator) idMapCopy() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.idMap))
	for k, v := range c.idMap {
		out[k] = v
	}
	return out
}

func (c *SyncCoordinator) send(ctx context.Context, op models.PendingOperation) (models.Record, error) {
	switch op.Kind {
	case models.OperationInsert:
		return c.gateway.Insert(ctx, op.Collection, op.Payload())
	case models.OperationUpdate:
		return c.gateway.Update(ctx, op.Collection, op.TargetID(), op.Patch())
	case models.OperationDelete:
		return nil, c.gateway.Delete(ctx, op.Collection, op.TargetID())
	}
	return nil, app.E(app.KindValidation, "coordinator.send", fmt.Errorf("unknown operation kind %q", op.Kind))
}

func (c *SyncCoordinator) replayFailed(ctx context.Context, op models.PendingOperation, err error, report *models.DrainReport, blocked map[models.Collection]bool) {
	failure := models.OperationFailure{Operation: op, Err: err}
	report.Failed++

	if app.IsRetryable(err) {
		blocked[op.Collection] = true
	} else {
		failure.Dropped = true
		c.removeOperation(ctx, op)
	}
	report.Failures = append(report.Failures, failure)

	c.logger.Warn().Err(err).
		Str("func", "SyncCoordinator.replay").
		Str("operation_id", op.ID).
		Str("collection", op.Collection.String()).
		Str("kind", app.KindOf(err).String()).
		Bool("dropped", failure.Dropped).
		Msg("queued operation failed")
}

func (c *SyncCoordinator) removeOperation(ctx context.Context, op models.PendingOperation) {
	if err := c.queue.Remove(ctx, op.ID); err != nil {
		c.logger.Err(err).
			Str("func", "SyncCoordinator.removeOperation").
			Str("operation_id", op.ID).
			Msg("failed to remove operation from queue")
	}
}
