package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/core"
	"github.com/auto-dns/docker-vhoster/internal/event"
	"github.com/auto-dns/docker-vhoster/internal/hostsfile"
	"github.com/auto-dns/docker-vhoster/internal/registry"
	"github.com/auto-dns/docker-vhoster/internal/state"
	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type App struct {
	cfg         *config.Config
	generator   *event.DockerGenerator
	upstream    registry.Registry
	coordinator *core.SyncCoordinator
	engine      *core.SyncEngine
	logger      zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	// Docker CLI
	dockerClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	gen := event.NewDockerGenerator(dockerClient, logger)

	memState := state.NewMemoryState()
	store := hostsfile.NewFile(cfg.App.HostFileLocation, cfg.App.AtomicWrite)
	coordinator := core.NewSyncCoordinator(memState, store, cfg.App.VhostIPAddr, logger)

	// etcd CLI
	var upstream registry.Registry
	if cfg.Etcd.Enabled {
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   []string{cfg.Etcd.Host + ":" + strconv.Itoa(cfg.Etcd.Port)},
			DialTimeout: 2 * time.Second,
		})
		if err != nil {
			gen.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		upstream = registry.NewEtcdRegistry(etcdClient, &cfg.Etcd, cfg.App.Hostname, logger)
		publishTimeout := time.Duration(cfg.Etcd.PublishTimeout * float64(time.Second))
		coordinator.WithUpstream(upstream, cfg.App.Hostname, publishTimeout)
	}

	engine := core.NewSyncEngine(logger, &cfg.App, gen, memState, coordinator)

	return &App{
		cfg:         cfg,
		generator:   gen,
		upstream:    upstream,
		coordinator: coordinator,
		engine:      engine,
		logger:      logger,
	}, nil
}

// Run starts the application by running the sync engine.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().
		Str("host_file_location", a.cfg.App.HostFileLocation).
		Str("env_var_name", a.cfg.App.EnvVarName).
		Str("vhost_ip_addr", a.cfg.App.VhostIPAddr).
		Bool("etcd_enabled", a.cfg.Etcd.Enabled).
		Msg("Starting with options")
	if a.cfg.App.WatchHostFile {
		a.engine.WithWatcher(hostsfile.NewWatcher(a.cfg.App.HostFileLocation, func() {
			if err := a.coordinator.Sync(ctx); err != nil {
				a.logger.Error().Err(err).Msg("Error repairing vhosts file")
			}
		}, a.logger))
	}
	return a.engine.Run(ctx)
}

func (a *App) Close() error {
	var firstErr error
	if a.generator != nil {
		if err := a.generator.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close docker client: %w", err)
		}
	}
	if a.upstream != nil {
		if err := a.upstream.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close etcd client: %w", err)
		}
	}
	return firstErr
}
