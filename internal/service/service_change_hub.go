package service

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// DefaultHubBuffer is the per-subscriber event buffer of a change hub.
const DefaultHubBuffer = 64

type hubKey struct {
	userID     string
	collection models.Collection
}

// changeHub is an in-process ChangeHub. A subscriber whose buffer is full
// misses the event; clients recover through their next refetch.
type changeHub struct {
	buffer int
	logger *logger.Logger

	mu     sync.Mutex
	subs   map[hubKey]map[uint64]chan models.ChangeEvent
	nextID uint64
}

func NewChangeHub(buffer int, logger *logger.Logger) ChangeHub {
	if buffer <= 0 {
		buffer = DefaultHubBuffer
	}
	return &changeHub{
		buffer: buffer,
		logger: logger,
		subs:   make(map[hubKey]map[uint64]chan models.ChangeEvent),
	}
}

func (h *changeHub) Publish(ctx context.Context, userID string, event models.ChangeEvent) {
	key := hubKey{userID: userID, collection: event.Collection}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs[key] {
		select {
		case ch <- event:
		default:
			logger.FromContext(ctx).Warn().
				Str("func", "changeHub.Publish").
				Str("user_id", userID).
				Str("collection", event.Collection.String()).
				Uint64("subscriber", id).
				Msg("subscriber is too slow, change event dropped")
		}
	}
}

func (h *changeHub) Subscribe(userID string, collection models.Collection) (<-chan models.ChangeEvent, func()) {
	key := hubKey{userID: userID, collection: collection}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan models.ChangeEvent, h.buffer)
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]chan models.ChangeEvent)
	}
	h.subs[key][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(ch)
		})
	}
}
