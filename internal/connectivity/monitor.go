// Package connectivity reports whether the backend is reachable.
//
// Monitors are edge-triggered: subscribers receive a [Transition] only when
// the state flips, never a repeated value. Consumers react to transitions
// and never poll.
package connectivity

import (
	"sync"
	"time"
)

// Transition is a change of the reachability state.
type Transition struct {
	Online bool
	At     time.Time
}

// Monitor is the connectivity source consumed by the sync engine.
type Monitor interface {
	IsOnline() bool
	// Subscribe returns a channel of transitions and a function that
	// releases it. The channel keeps only the latest undelivered
	// transition, so a slow reader always observes the current state.
	Subscribe() (<-chan Transition, func())
}

// broadcaster holds the state shared by every Monitor implementation.
type broadcaster struct {
	mu     sync.Mutex
	online bool
	subs   map[uint64]chan Transition
	nextID uint64
	now    func() time.Time
}

func newBroadcaster(online bool) *broadcaster {
	return &broadcaster{
		online: online,
		subs:   make(map[uint64]chan Transition),
		now:    time.Now,
	}
}

func (b *broadcaster) IsOnline() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe() (<-chan Transition, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan Transition, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// set stores the new state and reports whether it was an edge.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.online == online {
		return false
	}
	b.online = online

	t := Transition{Online: online, At: b.now()}
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- t
	}
	return true
}
