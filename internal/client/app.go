package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/cache"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/queue"
	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/internal/workers"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// App is the sync runtime of the user the configured token belongs to.
type App struct {
	userID      string
	logger      *logger.Logger
	storages    *store.ClientStorages
	probe       *connectivity.Probe
	cache       *cache.LocalCache
	queue       *queue.PersistentQueue
	coordinator *service.SyncCoordinator

	closeOnce sync.Once
	closeErr  error
}

// NewApp wires the runtime:
//  1. Reads the user id from the token subject.
//  2. Opens the local store (queue, mirror, temp-id table).
//  3. Builds the gateway, the probe, the cache, the queue and the
//     coordinator over them.
//
// Nothing talks to the backend until Start or Run is called.
func NewApp(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	userID, err := utils.ParseUserIDFromJWT(cfg.App.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	log = &logger.Logger{Logger: log.With().Str("user_id", userID).Logger()}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("error creating client storages: %w", err)
	}

	gateway, err := adapter.NewHTTPGateway(cfg.Adapter, cfg.App.Token, log)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("error creating gateway: %w", err)
	}

	probe := connectivity.NewProbe(gateway, cfg.Workers.ProbeInterval, cfg.Workers.ProbeTimeout, log)
	localCache := cache.New(userID, storages.Mirror, log)
	pending := queue.New(ctx, userID, storages.Operations, log)

	log.Info().
		Str("func", "NewApp").
		Str("base_url", cfg.Adapter.BaseURL).
		Int("pending", pending.Count()).
		Msg("client runtime created")

	return &App{
		userID:      userID,
		logger:      log,
		storages:    storages,
		probe:       probe,
		cache:       localCache,
		queue:       pending,
		coordinator: service.NewSyncCoordinator(userID, localCache, pending, gateway, probe, storages.IDMappings, log),
	}, nil
}

// UserID returns the owner of the local data.
func (a *App) UserID() string {
	return a.userID
}

// Coordinator exposes the engine for reads, writes and subscriptions.
func (a *App) Coordinator() *service.SyncCoordinator {
	return a.coordinator
}

// Online reports the last known connectivity state.
func (a *App) Online() bool {
	return a.probe.IsOnline()
}

// Start checks connectivity once and starts the coordinator. Operations
// left by a previous run are drained in the background when the backend is
// reachable. The probe is not kept running; use Run for that.
func (a *App) Start(ctx context.Context) error {
	a.probe.Check(ctx)
	if err := a.coordinator.Start(ctx); err != nil {
		if errors.Is(err, service.ErrStopped) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Run keeps the connectivity probe and the coordinator running until ctx is
// done. The coordinator is subscribed to the probe before the first check
// so the initial transition is not missed.
func (a *App) Run(ctx context.Context) error {
	if err := a.coordinator.Start(ctx); err != nil {
		if errors.Is(err, service.ErrStopped) {
			return ErrClosed
		}
		return err
	}
	return workers.NewWorkers(a.logger).
		Add("connectivity-probe", a.probe).
		Add("sync-coordinator", a.coordinator).
		Run(ctx)
}

// Load refetches col and returns its view. When the backend cannot be
// reached the mirrored snapshot is returned with the fetch error in Err.
func (a *App) Load(ctx context.Context, col models.Collection) models.CollectionView {
	if err := a.coordinator.Refetch(ctx, col); err != nil {
		a.logger.Debug().Err(err).
			Str("func", "App.Load").
			Str("collection", col.String()).
			Msg("refetch failed, serving local data")
		if app.KindOf(err) == app.KindValidation {
			return models.CollectionView{Err: err}
		}
	}
	return a.coordinator.Get(ctx, col)
}

// Sync drains the queue now. When a drain is already running it waits for
// that drain to finish and returns its report.
func (a *App) Sync(ctx context.Context) (models.DrainReport, error) {
	if !a.probe.Check(ctx) {
		return models.DrainReport{}, app.E(app.KindNetwork, "client.Sync", service.ErrOffline)
	}

	reports := make(chan models.DrainReport, 1)
	stop := a.coordinator.OnDrainComplete(func(r models.DrainReport) {
		select {
		case reports <- r:
		default:
		}
	})
	defer stop()

	report, err := a.coordinator.Drain(ctx)
	if !errors.Is(err, service.ErrSyncInProgress) {
		return report, err
	}

	select {
	case report = <-reports:
		return report, nil
	case <-ctx.Done():
		return models.DrainReport{}, ctx.Err()
	}
}

// Status summarises the runtime for display.
func (a *App) Status() Status {
	return Status{
		UserID:  a.userID,
		Online:  a.probe.IsOnline(),
		Pending: a.coordinator.PendingCount(),
		Syncing: a.coordinator.Syncing(),
		Degraded: Degradation{
			Queue: a.queue.Degraded(),
			Cache: a.cache.Degraded(),
		},
	}
}

// Close stops the engine and releases the local store.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.coordinator.Stop()
		a.probe.Stop()
		a.cache.Close()
		a.closeErr = a.storages.Close()

		a.logger.Info().Str("func", "App.Close").Msg("client runtime closed")
	})
	return a.closeErr
}
