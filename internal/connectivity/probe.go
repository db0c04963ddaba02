package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
)

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

// Pinger is the reachability check a Probe runs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe is a Monitor that pings the backend on a ticker. It starts offline
// and is idle until Start is called.
type Probe struct {
	*broadcaster

	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Monitor = (*Probe)(nil)

// NewProbe creates a probe. A zero or negative interval or timeout falls
// back to 5s and 2s.
func NewProbe(pinger Pinger, interval, timeout time.Duration, log *logger.Logger) *Probe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Probe{
		broadcaster: newBroadcaster(false),
		pinger:      pinger,
		interval:    interval,
		timeout:     timeout,
		logger:      log,
	}
}

// Check pings once and updates the state. It returns the resulting state.
func (p *Probe) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(pingCtx)
	if err != nil && ctx.Err() != nil {
		// shutting down, not a connectivity change
		return p.IsOnline()
	}
	online := err == nil
	if p.set(online) {
		event := p.logger.Info()
		if err != nil {
			event = p.logger.Warn().Err(err)
		}
		event.
			Str("func", "Probe.Check").
			Bool("online", online).
			Msg("connectivity changed")
	}
	return online
}

// Start stops any previous run, checks once synchronously so that IsOnline
// is meaningful right away, then keeps checking every interval in the
// background until ctx is cancelled or Stop is called.
func (p *Probe) Start(ctx context.Context) {
	p.Stop()

	p.Check(ctx)

	p.mu.Lock()
	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-probeCtx.Done():
				return
			case <-t.C:
				p.Check(probeCtx)
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has exited.
// Safe to call when the probe is not running.
func (p *Probe) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Run starts the probe and blocks until ctx is done.
func (p *Probe) Run(ctx context.Context) error {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}
