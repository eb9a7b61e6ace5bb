package core

import (
	"context"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/rs/zerolog"
)

// ConnectionSupervisor waits for the container engine to answer the initial
// handshake. It retries at a fixed interval and never gives up on its own:
// without the engine the daemon has nothing to do.
type ConnectionSupervisor struct {
	runtime  runtimeHandshaker
	interval time.Duration
	logger   zerolog.Logger
}

func NewConnectionSupervisor(runtime runtimeHandshaker, interval time.Duration, logger zerolog.Logger) *ConnectionSupervisor {
	return &ConnectionSupervisor{
		runtime:  runtime,
		interval: interval,
		logger:   logger.With().Str("component", "connection_supervisor").Logger(),
	}
}

// Connect blocks until the handshake succeeds or ctx is done.
func (cs *ConnectionSupervisor) Connect(ctx context.Context) (domain.RuntimeInfo, error) {
	for attempt := 1; ; attempt++ {
		cs.logger.Info().Int("attempt", attempt).Msg("Attempting to connect to docker")
		info, err := cs.runtime.Handshake(ctx)
		if err == nil {
			return info, nil
		}
		if ctx.Err() != nil {
			return domain.RuntimeInfo{}, ctx.Err()
		}
		cs.logger.Warn().Err(err).Msgf("Docker is not reachable, retrying in %s", cs.interval)

		timer := time.NewTimer(cs.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.RuntimeInfo{}, ctx.Err()
		case <-timer.C:
		}
	}
}
