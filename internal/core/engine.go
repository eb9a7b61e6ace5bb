package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

type Phase string

const (
	PhaseConnecting  Phase = "connecting"
	PhaseInitialSync Phase = "initial_sync"
	PhaseStreaming   Phase = "streaming"
	PhaseTerminated  Phase = "terminated"
)

// SyncEngine connects to the container engine, registers the running
// containers and then follows lifecycle events, syncing the hosts file after
// each change.
type SyncEngine struct {
	logger      zerolog.Logger
	cfg         *config.AppConfig
	generator   generator
	supervisor  *ConnectionSupervisor
	resolver    *Resolver
	registry    containerRegistry
	coordinator *SyncCoordinator
	watcher     hostsWatcher

	mu    sync.Mutex
	phase Phase
}

func NewSyncEngine(logger zerolog.Logger, cfg *config.AppConfig, gen generator, reg containerRegistry, coordinator *SyncCoordinator) *SyncEngine {
	return &SyncEngine{
		logger:      logger.With().Str("component", "sync_engine").Logger(),
		cfg:         cfg,
		generator:   gen,
		supervisor:  NewConnectionSupervisor(gen, time.Duration(cfg.ConnectRetryInterval)*time.Second, logger),
		resolver:    NewResolver(gen, config.EnvVarNames(cfg.EnvVarName)),
		registry:    reg,
		coordinator: coordinator,
		phase:       PhaseConnecting,
	}
}

// WithWatcher runs w while streaming; it is expected to call Sync itself.
func (se *SyncEngine) WithWatcher(w hostsWatcher) *SyncEngine {
	se.watcher = w
	return se
}

func (se *SyncEngine) Phase() Phase {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.phase
}

func (se *SyncEngine) setPhase(p Phase) {
	se.mu.Lock()
	se.phase = p
	se.mu.Unlock()
	se.logger.Info().Str("phase", string(p)).Msg("Sync engine phase change")
}

// Run returns nil when the engine ends the event stream and the context
// error when ctx is cancelled.
func (se *SyncEngine) Run(ctx context.Context) error {
	defer se.setPhase(PhaseTerminated)

	se.setPhase(PhaseConnecting)
	info, err := se.supervisor.Connect(ctx)
	if err != nil {
		return err
	}
	se.logger.Info().Msgf("Connected to %s", info.Render())

	se.setPhase(PhaseInitialSync)
	since := time.Now()
	if err := se.initialSync(ctx); err != nil {
		return err
	}

	eventCh, err := se.generator.Subscribe(ctx, since)
	if err != nil {
		return err
	}
	se.setPhase(PhaseStreaming)

	if se.watcher != nil {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		go func() {
			if err := se.watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				se.logger.Error().Err(err).Msg("Hosts file watcher stopped")
			}
		}()
	}

	se.logger.Info().Msg("Waiting for events")
	for {
		select {
		case evt, ok := <-eventCh:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				se.logger.Info().Msg("Docker connection terminated")
				return nil
			}
			se.handleEvent(ctx, evt)
		case <-ctx.Done():
			se.logger.Info().Msg("SyncEngine shutting down")
			return ctx.Err()
		}
	}
}

// initialSync registers every running container and writes the hosts file once.
// Per-container and sync failures are logged, not returned.
func (se *SyncEngine) initialSync(ctx context.Context) error {
	se.logger.Info().Msg("Fetching initial container list")
	ids, err := se.generator.ListRunning(ctx)
	if err != nil {
		return err
	}

	p := pool.New().WithMaxGoroutines(se.cfg.InspectConcurrency)
	for _, id := range ids {
		id := id
		p.Go(func() {
			se.register(ctx, id)
		})
	}
	p.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	se.sync(ctx)
	return nil
}

func (se *SyncEngine) handleEvent(ctx context.Context, evt domain.ContainerEvent) {
	if evt.Container.Id == "" {
		return
	}
	switch {
	case evt.EventType == domain.EventTypeContainerStarted:
		se.logger.Info().Msgf("Container start %s", evt.Container.Id)
		if !se.register(ctx, evt.Container.Id) {
			return
		}
	case evt.EventType.IsRemoval():
		se.logger.Info().Msgf("Container %s %s", evt.EventType, evt.Container.Id)
		if se.registry.Remove(evt.Container.Id) {
			se.logger.Info().Msgf("Removed container %s from registry", evt.Container.Id)
		}
	default:
		se.logger.Debug().Msgf("Ignoring %s event for %s", evt.EventType, evt.Container.Id)
		return
	}
	se.sync(ctx)
}

// register resolves and upserts one container, reporting success.
func (se *SyncEngine) register(ctx context.Context, containerId string) bool {
	record, err := se.resolver.Resolve(ctx, containerId)
	if err != nil {
		se.logger.Warn().Err(err).Msg("Skipping container")
		return false
	}
	if err := se.registry.Upsert(record.Id, record.Name, record.Hostnames); err != nil {
		se.logger.Error().Err(err).Msg("Error registering container")
		return false
	}
	se.logger.Info().Msgf("Registered %s", record.Render())
	return true
}

func (se *SyncEngine) sync(ctx context.Context) {
	if err := se.coordinator.Sync(ctx); err != nil {
		se.logger.Error().Err(err).Msg("Error updating vhosts file")
	}
}
