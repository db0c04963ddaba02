package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/cache"
	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/queue"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/require"
)

// fakeCall is one request received by fakeGateway.
type fakeCall struct {
	Method     string
	Collection models.Collection
	ID         string
	Payload    models.Record
}

func (c fakeCall) String() string {
	if c.ID == "" {
		return c.Method + " " + c.Collection.String()
	}
	return c.Method + " " + c.Collection.String() + " " + c.ID
}

// fakeGateway is an in-memory backend. before runs ahead of every write
// and may fail it.
type fakeGateway struct {
	mu        sync.Mutex
	records   map[models.Collection][]models.Record
	seq       int
	calls     []fakeCall
	idFor     func(col models.Collection, payload models.Record) string
	before    func(call fakeCall) error
	fetchErr  error
	subErr    error
	subs      map[models.Collection][]*fakeSub
	active    map[models.Collection]int
	maxActive map[models.Collection]int
	opened    int
}

var _ adapter.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records:   make(map[models.Collection][]models.Record),
		subs:      make(map[models.Collection][]*fakeSub),
		active:    make(map[models.Collection]int),
		maxActive: make(map[models.Collection]int),
	}
}

func (g *fakeGateway) seed(col models.Collection, records ...models.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[col] = append(g.records[col], records...)
}

func (g *fakeGateway) writes() []fakeCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []fakeCall
	for _, c := range g.calls {
		if c.Method != "fetch" {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) stored(col models.Collection) []models.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Record(nil), g.records[col]...)
}

func (g *fakeGateway) record(call fakeCall) error {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	before := g.before
	g.mu.Unlock()

	if before != nil {
		return before(call)
	}
	return nil
}

func (g *fakeGateway) Fetch(_ context.Context, col models.Collection, _ string) ([]models.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, fakeCall{Method: "fetch", Collection: col})
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	out := make([]models.Record, 0, len(g.records[col]))
	for _, r := range g.records[col] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (g *fakeGateway) Insert(_ context.Context, col models.Collection, payload models.Record) (models.Record, error) {
	if err := g.record(fakeCall{Method: "insert", Collection: col, Payload: payload.Clone()}); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	id := fmt.Sprintf("srv-%d", g.seq)
	if g.idFor != nil {
		id = g.idFor(col, payload)
	}
	saved := payload.WithID(id)
	g.records[col] = append(g.records[col], saved)
	return saved.Clone(), nil
}

func (g *fakeGateway) Update(_ context.Context, col models.Collection, id string, patch models.Record) (models.Record, error) {
	if err := g.record(fakeCall{Method: "update", Collection: col, ID: id, Payload: patch.Clone()}); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i, r := range g.records[col] {
		if r.ID() == id {
			g.records[col][i] = r.Merge(patch)
			return g.records[col][i].Clone(), nil
		}
	}
	return nil, app.E(app.KindConflict, "fake.Update", ErrRecordNotFound)
}

func (g *fakeGateway) Delete(_ context.Context, col models.Collection, id string) error {
	if err := g.record(fakeCall{Method: "delete", Collection: col, ID: id}); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	next, _ := cache.Remove(g.records[col], id)
	g.records[col] = next
	return nil
}

func (g *fakeGateway) Ping(context.Context) error { return nil }

func (g *fakeGateway) Subscribe(_ context.Context, col models.Collection, _ string) (adapter.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subErr != nil {
		return nil, g.subErr
	}
	sub := &fakeSub{
		gw:         g,
		collection: col,
		events:     make(chan models.ChangeEvent, 16),
		done:       make(chan struct{}),
	}
	g.subs[col] = append(g.subs[col], sub)
	g.opened++
	g.active[col]++
	if g.active[col] > g.maxActive[col] {
		g.maxActive[col] = g.active[col]
	}
	return sub, nil
}

// push delivers event to every open subscription of its collection.
func (g *fakeGateway) push(event models.ChangeEvent) {
	g.mu.Lock()
	subs := append([]*fakeSub(nil), g.subs[event.Collection]...)
	g.mu.Unlock()

	for _, s := range subs {
		s.deliver(event)
	}
}

func (g *fakeGateway) activeSubs(col models.Collection) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[col]
}

func (g *fakeGateway) peakSubs(col models.Collection) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxActive[col]
}

type fakeSub struct {
	gw         *fakeGateway
	collection models.Collection
	events     chan models.ChangeEvent
	done       chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *fakeSub) Events() <-chan models.ChangeEvent { return s.events }
func (s *fakeSub) Done() <-chan struct{}             { return s.done }

func (s *fakeSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSub) Close() error {
	s.end(nil)
	return nil
}

// end terminates the subscription as if the server went away when err is
// set.
func (s *fakeSub) end(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.events)
	close(s.done)
	s.mu.Unlock()

	g := s.gw
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active[s.collection]--
	for i, other := range g.subs[s.collection] {
		if other == s {
			g.subs[s.collection] = append(g.subs[s.collection][:i], g.subs[s.collection][i+1:]...)
			break
		}
	}
}

func (s *fakeSub) deliver(event models.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- event
	}
}

// ── harness ──────────────────────────────────────────────────────────────────

var testNow = time.UnixMilli(1_700_000_000_000)

type harness struct {
	gw      *fakeGateway
	monitor *connectivity.Manual
	mirror  store.MirrorRepository
	cache   *cache.LocalCache
	queue   *queue.PersistentQueue
	coord   *SyncCoordinator
	reports chan models.DrainReport
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	gateway  adapter.Gateway
	mirror   store.MirrorRepository
	ops      store.OperationRepository
	mappings store.IDMappingRepository
}

func withGateway(g adapter.Gateway) harnessOption {
	return func(c *harnessConfig) { c.gateway = g }
}

func withMirror(m store.MirrorRepository) harnessOption {
	return func(c *harnessConfig) { c.mirror = m }
}

func withStores(ops store.OperationRepository, mappings store.IDMappingRepository) harnessOption {
	return func(c *harnessConfig) {
		c.ops = ops
		c.mappings = mappings
	}
}

// newHarness builds a coordinator over in-memory stores. It is not started.
func newHarness(t *testing.T, online bool, opts ...harnessOption) *harness {
	t.Helper()

	gw := newFakeGateway()
	cfg := harnessConfig{
		gateway:  gw,
		mirror:   store.NewMemoryMirror(),
		ops:      store.NewMemoryOperationRepository(),
		mappings: store.NewMemoryIDMappingRepository(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		gw:      gw,
		monitor: connectivity.NewManual(online),
		mirror:  cfg.mirror,
		reports: make(chan models.DrainReport, 8),
	}
	h.cache = cache.New("user-1", cfg.mirror, logger.Nop())
	h.queue = queue.New(context.Background(), "user-1", cfg.ops, logger.Nop())
	h.coord = NewSyncCoordinator("user-1", h.cache, h.queue, cfg.gateway, h.monitor, cfg.mappings, logger.Nop())

	seq := 0
	h.coord.now = func() time.Time {
		seq++
		return testNow.Add(time.Duration(seq) * time.Millisecond)
	}
	h.coord.OnDrainComplete(func(r models.DrainReport) { h.reports <- r })

	t.Cleanup(func() {
		h.coord.Stop()
		h.cache.Close()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.coord.Start(context.Background()))
}

func (h *harness) waitReport(t *testing.T) models.DrainReport {
	t.Helper()
	select {
	case r := <-h.reports:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no drain report")
	}
	return models.DrainReport{}
}

func (h *harness) records(col models.Collection) []models.Record {
	return h.cache.Get(col).Records
}

func (h *harness) waitState(t *testing.T, col models.Collection, want CollectionState) {
	t.Helper()
	require.Eventually(t, func() bool { return h.coord.State(col) == want },
		2*time.Second, 5*time.Millisecond, "state of %s never became %s", col, want)
}

func ids(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID())
	}
	return out
}

func callNames(calls []fakeCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

var errNetwork = app.E(app.KindNetwork, "fake", fmt.Errorf("connection refused"))
