package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/auto-dns/docker-vhoster/internal/hostsfile"
	"github.com/auto-dns/docker-vhoster/internal/util"
	"github.com/rs/zerolog"
)

// SyncCoordinator renders the registry into the hosts file. Passes are
// serialized; the snapshot is taken once the pass holds the lock, so every
// registry change completed before that point is written.
type SyncCoordinator struct {
	mu       sync.Mutex
	registry containerRegistry
	store    hostsStore
	ip       string
	logger   zerolog.Logger

	// publishMu orders upstream publishes without holding up the file pass.
	publishMu      sync.Mutex
	upstream       upstreamRegistry
	owner          string
	publishTimeout time.Duration
}

func NewSyncCoordinator(registry containerRegistry, store hostsStore, ip string, logger zerolog.Logger) *SyncCoordinator {
	return &SyncCoordinator{
		registry: registry,
		store:    store,
		ip:       ip,
		logger:   logger.With().Str("component", "sync_coordinator").Logger(),
	}
}

// WithUpstream mirrors every successful pass to an upstream registry, with
// records attributed to owner. Each publish is abandoned after timeout.
func (sc *SyncCoordinator) WithUpstream(upstream upstreamRegistry, owner string, timeout time.Duration) *SyncCoordinator {
	sc.upstream = upstream
	sc.owner = owner
	sc.publishTimeout = timeout
	return sc
}

// Sync rewrites the managed block of the hosts file from the current registry.
// On error the file is left as it was.
func (sc *SyncCoordinator) Sync(ctx context.Context) error {
	if err := sc.syncFile(); err != nil {
		return err
	}
	sc.publish(ctx)
	return nil
}

func (sc *SyncCoordinator) syncFile() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	records := sc.registry.Snapshot()

	current, err := sc.store.Read()
	if err != nil {
		return err
	}
	block := hostsfile.Render(sc.ip, records)
	updated := hostsfile.Apply(current, block)

	if updated == current {
		sc.logger.Debug().Msgf("Hosts file %s already up to date", sc.store.Path())
		return nil
	}
	sc.logger.Info().Msgf("Updating vhost file %s", sc.store.Path())
	if err := sc.store.Write(updated); err != nil {
		return fmt.Errorf("update %s: %w", sc.store.Path(), err)
	}
	sc.logger.Info().Msgf("Wrote vhost content:\n%s", block)
	return nil
}

// publish sends the latest registry state upstream. Errors and timeouts are
// logged only; the hosts file is the source of truth.
func (sc *SyncCoordinator) publish(ctx context.Context) {
	if sc.upstream == nil {
		return
	}
	sc.publishMu.Lock()
	defer sc.publishMu.Unlock()

	hostRecords := util.FlatMap(sc.registry.Snapshot(), func(r domain.ContainerRecord) []domain.HostRecord {
		return r.HostRecords(sc.ip, sc.owner)
	})

	if sc.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.publishTimeout)
		defer cancel()
	}
	if err := sc.upstream.Publish(ctx, hostRecords); err != nil {
		sc.logger.Error().Err(err).Msg("Error publishing records upstream")
	}
}
