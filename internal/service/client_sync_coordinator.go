// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/cache"
	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/queue"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// CollectionState is the lifecycle state of one collection inside a
// session.
type CollectionState uint8

const (
	// StateIdle means nobody has asked for the collection yet.
	StateIdle CollectionState = iota
	// StateFetching means the initial or a refreshing fetch is in flight.
	StateFetching
	// StateSubscribed means the cache is populated and the push channel is
	// open.
	StateSubscribed
	// StateDegraded means the last fetch or the push channel failed. Reads
	// are served from the cache or its mirror.
	StateDegraded
)

func (s CollectionState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateSubscribed:
		return "subscribed"
	case StateDegraded:
		return "degraded"
	default:
		return "idle"
	}
}

// collectionSession tracks the fetch and push state of one collection.
type collectionSession struct {
	// lifecycle serializes fetch, subscribe and teardown so that at most one
	// push channel per collection exists at any instant.
	lifecycle sync.Mutex

	// guarded by SyncCoordinator.mu
	state     CollectionState
	observers int
	gen       uint64
	sub       adapter.Subscription
	pumpDone  chan struct{}
}

// SyncCoordinator keeps the local cache, the durable queue and the server
// consistent for one authenticated user.
//
// Reads are served from the cache. Writes are applied optimistically and
// either sent right away or queued. When connectivity returns the queue is
// drained in order and every active collection is refetched.
type SyncCoordinator struct {
	userID   string
	cache    *cache.LocalCache
	queue    *queue.PersistentQueue
	gateway  adapter.Gateway
	monitor  connectivity.Monitor
	mappings store.IDMappingRepository
	logger   *logger.Logger
	now      func() time.Time

	// ctx lives as long as the session; push channels and background work
	// are bound to it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// writeMu keeps local writes in issuance order, including their direct
	// sends.
	writeMu sync.Mutex
	syncing atomic.Bool

	mu          sync.Mutex
	sessions    map[models.Collection]*collectionSession
	idMap       map[string]string
	listeners   map[uint64]func(models.DrainReport)
	nextID      uint64
	started     bool
	stopped     bool
	unsubscribe func()
}

// NewSyncCoordinator wires the engine components of one session. mappings
// may be nil, in which case the temp-id table is kept in memory only.
func NewSyncCoordinator(
	userID string,
	localCache *cache.LocalCache,
	pendingQueue *queue.PersistentQueue,
	gateway adapter.Gateway,
	monitor connectivity.Monitor,
	mappings store.IDMappingRepository,
	log *logger.Logger,
) *SyncCoordinator {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncCoordinator{
		userID:    userID,
		cache:     localCache,
		queue:     pendingQueue,
		gateway:   gateway,
		monitor:   monitor,
		mappings:  mappings,
		logger:    log,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[models.Collection]*collectionSession),
		idMap:     make(map[string]string),
		listeners: make(map[uint64]func(models.DrainReport)),
	}
}

// Start restores the temp-id table, begins listening for connectivity
// transitions and, when operations survived a restart and the backend is
// reachable, drains them once.
func (c *SyncCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.restoreMappings(ctx)

	ch, unsubscribe := c.monitor.Subscribe()
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.wg.Add(1)
	c.mu.Unlock()
	go c.watchConnectivity(ch)

	if pending := c.queue.Count(); pending > 0 && c.monitor.IsOnline() {
		c.logger.Info().
			Str("func", "SyncCoordinator.Start").
			Str("user_id", c.userID).
			Int("pending", pending).
			Msg("draining operations left from a previous run")
		c.goBackground(c.reconnect)
	}
	return nil
}

func (c *SyncCoordinator) restoreMappings(ctx context.Context) {
	if c.mappings == nil {
		return
	}

	mapping, err := c.mappings.All(ctx, c.userID)
	if err != nil {
		c.logger.Err(err).
			Str("func", "SyncCoordinator.Start").
			Str("user_id", c.userID).
			Msg("failed to restore temp-id table, continuing in memory")
		return
	}

	// nothing queued can reference an old temp id any more
	if c.queue.Count() == 0 {
		if len(mapping) > 0 {
			if err = c.mappings.Clear(ctx, c.userID); err != nil {
				c.logger.Err(err).
					Str("func", "SyncCoordinator.Start").
					Str("user_id", c.userID).
					Msg("failed to clear temp-id table")
			}
		}
		return
	}

	c.mu.Lock()
	for tempID, serverID := range mapping {
		c.idMap[tempID] = serverID
	}
	c.mu.Unlock()
}

// Stop tears the session down: push channels are closed, background work
// is cancelled and waited for. A stopped coordinator cannot be restarted.
func (c *SyncCoordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	unsubscribe := c.unsubscribe
	sessions := make([]*collectionSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancel()

	for _, s := range sessions {
		s.lifecycle.Lock()
		c.closeSubscription(s)
		c.mu.Lock()
		s.gen++
		s.state = StateIdle
		c.mu.Unlock()
		s.lifecycle.Unlock()
	}
	c.wg.Wait()
}

// Run starts the coordinator and keeps it running until ctx is done. It
// lets the coordinator be driven as a background worker.
func (c *SyncCoordinator) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.Stop()
	return nil
}

func (c *SyncCoordinator) goBackground(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

func (c *SyncCoordinator) watchConnectivity(ch <-chan connectivity.Transition) {
	defer c.wg.Done()

	for t := range ch {
		c.logger.Info().
			Str("func", "SyncCoordinator.watchConnectivity").
			Bool("online", t.Online).
			Msg("connectivity transition")
		if t.Online {
			c.goBackground(c.reconnect)
		} else {
			c.goBackground(c.disconnect)
		}
	}
}

// reconnect drains the queue, or just refreshes the active collections when
// there is nothing to drain. It is a no-op while a drain is running.
func (c *SyncCoordinator) reconnect(ctx context.Context) {
	if c.syncing.Load() {
		c.logger.Debug().
			Str("func", "SyncCoordinator.reconnect").
			Msg("drain already running, reconnect ignored")
		return
	}
	if c.queue.Count() == 0 {
		c.refreshActive(ctx)
		return
	}
	if _, err := c.Drain(ctx); err != nil {
		c.logger.Debug().Err(err).
			Str("func", "SyncCoordinator.reconnect").
			Msg("drain not started")
	}
}

// disconnect closes every push channel. The cached data stays readable.
func (c *SyncCoordinator) disconnect(_ context.Context) {
	for _, col := range c.activeCollections() {
		s := c.session(col)
		s.lifecycle.Lock()
		if !c.monitor.IsOnline() {
			c.closeSubscription(s)
			c.mu.Lock()
			if s.state != StateIdle {
				s.state = StateDegraded
			}
			c.mu.Unlock()
		}
		s.lifecycle.Unlock()
	}
}

func (c *SyncCoordinator) session(col models.Collection) *collectionSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked(col)
}

func (c *SyncCoordinator) sessionLocked(col models.Collection) *collectionSession {
	s, ok := c.sessions[col]
	if !ok {
		s = &collectionSession{}
		c.sessions[col] = s
	}
	return s
}

func (c *SyncCoordinator) activeCollections() []models.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.Collection
	for _, col := range models.Collections() {
		if s, ok := c.sessions[col]; ok && s.state != StateIdle {
			out = append(out, col)
		}
	}
	return out
}

// State returns the lifecycle state of col.
func (c *SyncCoordinator) State(col models.Collection) CollectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[col]; ok {
		return s.state
	}
	return StateIdle
}

// PendingCount returns the number of queued operations.
func (c *SyncCoordinator) PendingCount() int {
	return c.queue.Count()
}

// Syncing reports whether a drain is running.
func (c *SyncCoordinator) Syncing() bool {
	return c.syncing.Load()
}

// OnDrainComplete registers fn to receive the report of every finished
// drain. The returned function unregisters it.
func (c *SyncCoordinator) OnDrainComplete(fn func(models.DrainReport)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *SyncCoordinator) notifyDrain(report models.DrainReport) {
	c.mu.Lock()
	fns := make([]func(models.DrainReport), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(report)
	}
}

// ── reads ────────────────────────────────────────────────────────────────────

// Get returns the cached view of col right away. The first access starts a
// background fetch and opens the push channel.
func (c *SyncCoordinator) Get(_ context.Context, col models.Collection) models.CollectionView {
	if !col.Valid() {
		return models.CollectionView{Err: app.E(app.KindValidation, "coordinator.Get", models.ErrUnknownCollection)}
	}
	c.activate(col)
	return c.cache.Get(col).View()
}

// Observe marks col as observed and returns a channel of its snapshots. The
// returned function stops observing; when the last observer leaves, the
// push channel is closed.
func (c *SyncCoordinator) Observe(col models.Collection) (<-chan cache.Snapshot, func(), error) {
	if !col.Valid() {
		return nil, nil, app.E(app.KindValidation, "coordinator.Observe", models.ErrUnknownCollection)
	}

	ch, stopWatch := c.cache.Watch(col)

	c.mu.Lock()
	c.sessionLocked(col).observers++
	c.mu.Unlock()
	c.activate(col)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			stopWatch()
			c.unobserve(col)
		})
	}, nil
}

func (c *SyncCoordinator) unobserve(col models.Collection) {
	c.mu.Lock()
	s := c.sessionLocked(col)
	s.observers--
	if s.observers > 0 || s.state == StateIdle {
		c.mu.Unlock()
		return
	}
	// in-flight fetches of the old generation will not subscribe
	s.gen++
	s.state = StateIdle
	c.mu.Unlock()

	s.lifecycle.Lock()
	c.closeSubscription(s)
	s.lifecycle.Unlock()
}

// activate starts the first fetch of an idle collection.
func (c *SyncCoordinator) activate(col models.Collection) {
	c.mu.Lock()
	s := c.sessionLocked(col)
	if s.state != StateIdle || c.stopped {
		c.mu.Unlock()
		return
	}
	s.state = StateFetching
	gen := s.gen
	c.mu.Unlock()

	if c.monitor.IsOnline() {
		c.cache.SetLoading(col, true)
	}
	c.goBackground(func(ctx context.Context) {
		_ = c.refresh(ctx, col, gen)
	})
}

// Refetch fetches col again, replacing the cached records rebased over the
// operations still queued, and reopens its push channel.
func (c *SyncCoordinator) Refetch(ctx context.Context, col models.Collection) error {
	if !col.Valid() {
		return app.E(app.KindValidation, "coordinator.Refetch", models.ErrUnknownCollection)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	gen := c.sessionLocked(col).gen
	c.mu.Unlock()

	return c.refresh(ctx, col, gen)
}

func (c *SyncCoordinator) refreshActive(ctx context.Context) {
	for _, col := range c.activeCollections() {
		c.mu.Lock()
		gen := c.sessionLocked(col).gen
		c.mu.Unlock()

		_ = c.refresh(ctx, col, gen)
	}
}

// refresh closes the push channel of col, fetches it and opens a new
// channel. It gives up when gen is no longer current.
func (c *SyncCoordinator) refresh(ctx context.Context, col models.Collection, gen uint64) error {
	const op = "coordinator.fetch"

	s := c.session(col)
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !c.setState(s, gen, StateFetching) {
		return nil
	}
	c.closeSubscription(s)

	if !c.monitor.IsOnline() {
		err := app.E(app.KindNetwork, op, ErrOffline)
		c.fetchFailed(ctx, col, err)
		c.setState(s, gen, StateDegraded)
		return err
	}

	c.cache.SetLoading(col, true)
	records, err := c.gateway.Fetch(ctx, col, c.userID)
	if err != nil {
		c.fetchFailed(ctx, col, err)
		c.setState(s, gen, StateDegraded)
		return err
	}
	c.cache.ReplaceAll(ctx, col, c.rebase(col, records))

	sub, err := c.gateway.Subscribe(c.ctx, col, c.userID)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("func", "SyncCoordinator.refresh").
			Str("collection", col.String()).
			Msg("push channel unavailable, serving fetched data")
		c.setState(s, gen, StateDegraded)
		return nil
	}

	c.mu.Lock()
	if s.gen != gen || c.stopped {
		c.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	done := make(chan struct{})
	s.sub = sub
	s.pumpDone = done
	s.state = StateSubscribed
	c.wg.Add(1)
	c.mu.Unlock()

	go c.pump(col, s, sub, done)
	return nil
}

// setState moves s to state unless a newer generation took over.
func (c *SyncCoordinator) setState(s *collectionSession, gen uint64, state CollectionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.gen != gen || c.stopped {
		return false
	}
	s.state = state
	return true
}

func (c *SyncCoordinator) fetchFailed(ctx context.Context, col models.Collection, err error) {
	kind := app.KindOf(err)
	c.logger.Warn().Err(err).
		Str("func", "SyncCoordinator.refresh").
		Str("collection", col.String()).
		Str("kind", kind.String()).
		Msg("fetch failed")

	// credentials problems do not fall back to possibly foreign data
	if kind != app.KindAuth && len(c.cache.Get(col).Records) == 0 {
		if _, found, mErr := c.cache.LoadFromMirror(ctx, col); mErr == nil && found {
			c.cache.Mutate(ctx, col, func(records []models.Record) ([]models.Record, bool) {
				return c.rebase(col, records), true
			})
		}
	}
	c.cache.SetError(col, err)
}

// rebase reapplies the queued operations of col on top of records.
func (c *SyncCoordinator) rebase(col models.Collection, records []models.Record) []models.Record {
	out := records
	for _, op := range c.queue.Pending(col) {
		out, _ = cache.ApplyOperation(out, op)
	}
	return out
}

// closeSubscription closes the push channel of s and waits for its reader.
// The caller holds s.lifecycle.
func (c *SyncCoordinator) closeSubscription(s *collectionSession) {
	c.mu.Lock()
	sub, done := s.sub, s.pumpDone
	s.sub, s.pumpDone = nil, nil
	c.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		c.logger.Warn().Err(err).
			Str("func", "SyncCoordinator.closeSubscription").
			Msg("failed to close push channel")
	}
	<-done
}

// pump merges pushed events until the channel ends.
func (c *SyncCoordinator) pump(col models.Collection, s *collectionSession, sub adapter.Subscription, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	for event := range sub.Events() {
		c.mergePush(event)
	}

	c.mu.Lock()
	ended := s.sub == sub
	if ended {
		s.sub, s.pumpDone = nil, nil
		if s.state == StateSubscribed {
			s.state = StateDegraded
		}
	}
	c.mu.Unlock()

	if ended {
		c.logger.Warn().Err(sub.Err()).
			Str("func", "SyncCoordinator.pump").
			Str("collection", col.String()).
			Msg("push channel ended")
	}
}

// mergePush applies a pushed change. Queued operations on the same record
// are laid back on top so the optimistic state survives until replay.
func (c *SyncCoordinator) mergePush(event models.ChangeEvent) {
	id := event.Record.ID()
	var overlay []models.PendingOperation
	for _, op := range c.queue.Pending(event.Collection) {
		if op.Kind != models.OperationInsert && op.TargetID() == id {
			overlay = append(overlay, op)
		}
	}

	c.cache.Mutate(c.ctx, event.Collection, func(records []models.Record) ([]models.Record, bool) {
		next, changed := cache.ApplyEvent(records, event)
		if !changed {
			return records, false
		}
		for _, op := range overlay {
			next, _ = cache.ApplyOperation(next, op)
		}
		return next, true
	})
}

// ── temp ids ─────────────────────────────────────────────────────────────────

// lookup returns the server id tempID was confirmed as.
func (c *SyncCoordinator) lookup(tempID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	serverID, ok := c.idMap[tempID]
	return serverID, ok
}

func (c *SyncCoordinator) resolveID(id string) string {
	if !models.IsTempID(id) {
		return id
	}
	if serverID, ok := c.lookup(id); ok {
		return serverID
	}
	return id
}

// resolveRecord rewrites every confirmed temp id referenced by r.
func (c *SyncCoordinator) resolveRecord(r models.Record) models.Record {
	if len(models.TempIDsIn(r)) == 0 {
		return r
	}

	c.mu.Lock()
	mapping := make(map[string]string, len(c.idMap))
	for k, v := range c.idMap {
		mapping[k] = v
	}
	c.mu.Unlock()

	out, _ := r.ReplaceIDs(mapping)
	return out
}

func (c *SyncCoordinator) remember(ctx context.Context, col models.Collection, tempID, serverID string) {
	c.mu.Lock()
	c.idMap[tempID] = serverID
	c.mu.Unlock()

	if c.mappings == nil {
		return
	}
	if err := c.mappings.Save(context.WithoutCancel(ctx), c.userID, col, tempID, serverID); err != nil {
		c.logger.Err(app.E(app.KindStorage, "coordinator.remember", err)).
			Str("func", "SyncCoordinator.remember").
			Str("temp_id", tempID).
			Str("server_id", serverID).
			Msg("failed to persist temp-id mapping")
	}
}

// reconcile replaces tempID with the confirmed record everywhere: the
// temp-id table, queued payloads and every cached collection.
func (c *SyncCoordinator) reconcile(ctx context.Context, col models.Collection, tempID string, confirmed models.Record) {
	serverID := confirmed.ID()
	c.remember(ctx, col, tempID, serverID)
	rewritten := c.queue.RewriteID(ctx, tempID, serverID)

	record := confirmed
	deleted := false
	for _, op := range c.queue.Pending(col) {
		if op.TargetID() != serverID {
			continue
		}
		switch op.Kind {
		case models.OperationUpdate:
			record = record.Merge(op.Patch())
		case models.OperationDelete:
			deleted = true
		}
	}

	c.cache.ReplaceID(ctx, col, tempID, record)
	if deleted {
		c.cache.ApplyRemove(ctx, col, serverID)
	}
	c.cache.RewriteReferences(ctx, tempID, serverID)

	c.logger.Debug().
		Str("func", "SyncCoordinator.reconcile").
		Str("collection", col.String()).
		Str("temp_id", tempID).
		Str("server_id", serverID).
		Int("queued_rewritten", rewritten).
		Msg("temporary id confirmed")
}
