// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cache holds the in-memory view of every collection a client
// session works with.
//
// Each collection is an immutable [Snapshot]: mutations build a new records
// slice and publish it to watchers only when something changed. Published
// records are written through to a durable mirror so that reads can fall
// back to the last known good state while offline.
package cache

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// Snapshot is the observable state of one collection.
//
// Records is shared with other snapshots and must not be modified.
type Snapshot struct {
	Collection models.Collection
	Records    []models.Record
	Loading    bool
	Err        error
	// Version grows by one with every published snapshot of the collection.
	Version uint64
}

// View converts the snapshot to the consumer facing read model.
func (s Snapshot) View() models.CollectionView {
	return models.CollectionView{Data: s.Records, Loading: s.Loading, Err: s.Err}
}

type entry struct {
	snap     Snapshot
	watchers map[uint64]chan Snapshot
	// persisted is the version last handed to the mirror.
	persisted uint64
}

// LocalCache is the per-session collection store.
type LocalCache struct {
	userID string
	mirror store.MirrorRepository
	logger *logger.Logger

	mu       sync.Mutex
	entries  map[models.Collection]*entry
	nextID   uint64
	closed   bool
	degraded bool

	// mirrorMu orders mirror writes so an older snapshot never overwrites a
	// newer one.
	mirrorMu sync.Mutex
}

// New creates a cache for userID. A nil mirror makes the cache memory-only.
func New(userID string, mirror store.MirrorRepository, log *logger.Logger) *LocalCache {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalCache{
		userID:   userID,
		mirror:   mirror,
		logger:   log,
		entries:  make(map[models.Collection]*entry),
		degraded: mirror == nil,
	}
}

// entryLocked returns the entry of c, creating it on first access.
func (c *LocalCache) entryLocked(collection models.Collection) *entry {
	e, ok := c.entries[collection]
	if !ok {
		e = &entry{
			snap:     Snapshot{Collection: collection, Records: []models.Record{}},
			watchers: make(map[uint64]chan Snapshot),
		}
		c.entries[collection] = e
	}
	return e
}

// Get returns the current snapshot of collection. It never blocks on I/O.
func (c *LocalCache) Get(collection models.Collection) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entryLocked(collection).snap
}

// Collections lists the collections the cache has seen so far.
func (c *LocalCache) Collections() []models.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Collection, 0, len(c.entries))
	for _, col := range models.Collections() {
		if _, ok := c.entries[col]; ok {
			out = append(out, col)
		}
	}
	return out
}

// update runs fn on the current snapshot of collection and publishes the
// result if fn reports a change. Records changes are mirrored.
func (c *LocalCache) update(ctx context.Context, collection models.Collection, fn func(Snapshot) (Snapshot, bool, bool)) (Snapshot, bool) {
	c.mu.Lock()
	if c.closed {
		snap := c.entryLocked(collection).snap
		c.mu.Unlock()
		return snap, false
	}

	e := c.entryLocked(collection)
	next, changed, recordsChanged := fn(e.snap)
	if !changed {
		c.mu.Unlock()
		return e.snap, false
	}

	next.Collection = collection
	next.Version = e.snap.Version + 1
	e.snap = next
	c.publishLocked(e)
	mirror := recordsChanged && !c.degraded
	c.mu.Unlock()

	if mirror {
		c.persist(ctx, collection, next)
	}
	return next, true
}

func (c *LocalCache) updateRecords(ctx context.Context, collection models.Collection, fn func([]models.Record) ([]models.Record, bool)) (Snapshot, bool) {
	return c.update(ctx, collection, func(s Snapshot) (Snapshot, bool, bool) {
		records, changed := fn(s.Records)
		if !changed {
			return s, false, false
		}
		s.Records = records
		return s, true, true
	})
}

// Mutate runs fn on the records of collection inside the cache critical
// section. fn must not call back into the cache and must not modify its
// argument.
func (c *LocalCache) Mutate(ctx context.Context, collection models.Collection, fn func([]models.Record) ([]models.Record, bool)) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, fn)
}

// ApplyInsert adds record or replaces the entry with the same id.
func (c *LocalCache) ApplyInsert(ctx context.Context, collection models.Collection, record models.Record) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
		return Upsert(records, record)
	})
}

// ApplyUpdate merges patch into the entry with the given id. Updates of
// unknown ids are ignored.
func (c *LocalCache) ApplyUpdate(ctx context.Context, collection models.Collection, id string, patch models.Record) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
		return Patch(records, id, patch)
	})
}

// ApplyReplace overwrites the entry with the given id. Used to roll back an
// optimistic update.
func (c *LocalCache) ApplyReplace(ctx context.Context, collection models.Collection, id string, record models.Record) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
		return Replace(records, id, record)
	})
}

// ApplyRemove drops the entry with the given id, if present.
func (c *LocalCache) ApplyRemove(ctx context.Context, collection models.Collection, id string) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
		return Remove(records, id)
	})
}

// Apply merges a pushed change event. See [ApplyEvent].
func (c *LocalCache) Apply(ctx context.Context, event models.ChangeEvent) (Snapshot, bool) {
	return c.updateRecords(ctx, event.Collection, func(records []models.Record) ([]models.Record, bool) {
		return ApplyEvent(records, event)
	})
}

// ReplaceID swaps the temporary entry tempID for the confirmed server
// record. See [ReconcileID].
func (c *LocalCache) ReplaceID(ctx context.Context, collection models.Collection, tempID string, confirmed models.Record) (Snapshot, bool) {
	return c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
		return ReconcileID(records, tempID, confirmed)
	})
}

// RewriteReferences replaces tempID with serverID inside the records of
// every known collection.
func (c *LocalCache) RewriteReferences(ctx context.Context, tempID, serverID string) {
	for _, collection := range c.Collections() {
		c.updateRecords(ctx, collection, func(records []models.Record) ([]models.Record, bool) {
			return RewriteReferences(records, tempID, serverID)
		})
	}
}

// ReplaceAll installs a fetch result. Loading is cleared and so is any
// previous error.
func (c *LocalCache) ReplaceAll(ctx context.Context, collection models.Collection, records []models.Record) (Snapshot, bool) {
	fresh := make([]models.Record, 0, len(records))
	for _, r := range records {
		fresh = append(fresh, r.Clone())
	}

	return c.update(ctx, collection, func(s Snapshot) (Snapshot, bool, bool) {
		recordsChanged := !sameRecords(s.Records, fresh)
		if !recordsChanged && !s.Loading && s.Err == nil {
			return s, false, false
		}
		if recordsChanged {
			s.Records = fresh
		}
		s.Loading = false
		s.Err = nil
		return s, true, recordsChanged
	})
}

// SetLoading toggles the loading flag of collection.
func (c *LocalCache) SetLoading(collection models.Collection, loading bool) (Snapshot, bool) {
	return c.update(context.Background(), collection, func(s Snapshot) (Snapshot, bool, bool) {
		if s.Loading == loading {
			return s, false, false
		}
		s.Loading = loading
		return s, true, false
	})
}

// SetError records the last failure of collection and clears the loading
// flag. A nil err clears the error.
func (c *LocalCache) SetError(collection models.Collection, err error) (Snapshot, bool) {
	return c.update(context.Background(), collection, func(s Snapshot) (Snapshot, bool, bool) {
		if err == nil && s.Err == nil && !s.Loading {
			return s, false, false
		}
		s.Err = err
		s.Loading = false
		return s, true, false
	})
}

// LoadFromMirror replaces the records of collection with the mirrored ones.
// found is false when the mirror holds nothing for the collection; the
// cache is left untouched in that case.
func (c *LocalCache) LoadFromMirror(ctx context.Context, collection models.Collection) (snap Snapshot, found bool, err error) {
	if c.mirror == nil {
		return c.Get(collection), false, nil
	}

	records, found, err := c.mirror.Load(ctx, c.userID, collection)
	if err != nil {
		c.logger.Err(err).
			Str("func", "LocalCache.LoadFromMirror").
			Str("collection", collection.String()).
			Msg("failed to load collection from mirror")
		return c.Get(collection), false, app.E(app.KindStorage, "cache.LoadFromMirror", err)
	}
	if !found {
		return c.Get(collection), false, nil
	}

	snap, _ = c.update(ctx, collection, func(s Snapshot) (Snapshot, bool, bool) {
		if sameRecords(s.Records, records) {
			return s, false, false
		}
		s.Records = records
		// already durable
		return s, true, false
	})
	return snap, true, nil
}

// Degraded reports whether the mirror has been disabled after a failure.
func (c *LocalCache) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.degraded && c.mirror != nil
}

func (c *LocalCache) persist(ctx context.Context, collection models.Collection, snap Snapshot) {
	c.mirrorMu.Lock()
	defer c.mirrorMu.Unlock()

	c.mu.Lock()
	e := c.entryLocked(collection)
	if c.degraded || snap.Version <= e.persisted {
		c.mu.Unlock()
		return
	}
	e.persisted = snap.Version
	c.mu.Unlock()

	// Mirror writes outlive a cancelled caller.
	err := c.mirror.Save(context.WithoutCancel(ctx), c.userID, collection, snap.Records)
	if err == nil {
		return
	}

	c.mu.Lock()
	c.degraded = true
	c.mu.Unlock()

	c.logger.Err(app.E(app.KindStorage, "cache.persist", err)).
		Str("func", "LocalCache.persist").
		Str("collection", collection.String()).
		Msg("mirror write failed, cache continues in memory only")
}

// Watch subscribes to snapshots of collection. The channel holds at most the
// latest snapshot: a slow reader skips intermediate versions but always sees
// the newest one. The current snapshot is delivered immediately. The
// channel is closed by cancel or [LocalCache.Close].
func (c *LocalCache) Watch(collection models.Collection) (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	e := c.entryLocked(collection)
	c.nextID++
	id := c.nextID
	e.watchers[id] = ch
	ch <- e.snap

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w, ok := e.watchers[id]; ok {
				delete(e.watchers, id)
				close(w)
			}
		})
	}
	return ch, cancel
}

func (c *LocalCache) publishLocked(e *entry) {
	for _, ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- e.snap
	}
}

// Close detaches every watcher. Later mutations are ignored.
func (c *LocalCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, e := range c.entries {
		for id, ch := range e.watchers {
			delete(e.watchers, id)
			close(ch)
		}
	}
}

func sameRecords(a, b []models.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
