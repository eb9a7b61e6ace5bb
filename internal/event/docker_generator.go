package event

import (
	"context"
	"fmt"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/auto-dns/docker-vhoster/internal/util"
	"github.com/docker/docker/api/types/container"
	"github.com/rs/zerolog"
)

// DockerGenerator adapts the Docker engine API to the calls the sync engine needs.
type DockerGenerator struct {
	logger zerolog.Logger
	cli    dockerClient
}

func NewDockerGenerator(cli dockerClient, logger zerolog.Logger) *DockerGenerator {
	return &DockerGenerator{
		logger: logger.With().Str("component", "docker_generator").Logger(),
		cli:    cli,
	}
}

// Handshake queries the engine version, proving the engine is reachable.
func (dg *DockerGenerator) Handshake(ctx context.Context) (domain.RuntimeInfo, error) {
	v, err := dg.cli.ServerVersion(ctx)
	if err != nil {
		return domain.RuntimeInfo{}, fmt.Errorf("docker version: %w", err)
	}
	return fromServerVersion(v), nil
}

// ListRunning returns the ids of all running containers.
func (dg *DockerGenerator) ListRunning(ctx context.Context) ([]string, error) {
	containers, err := dg.cli.ContainerList(ctx, container.ListOptions{All: false})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	ids := util.Map(containers, func(c container.Summary) string { return c.ID })
	dg.logger.Debug().Msgf("Found %d running containers", len(ids))
	return ids, nil
}

// Inspect returns the display name and environment of a container.
func (dg *DockerGenerator) Inspect(ctx context.Context, containerId string) (domain.Container, error) {
	resp, err := dg.cli.ContainerInspect(ctx, containerId)
	if err != nil {
		return domain.Container{}, fmt.Errorf("inspect container %s: %w", containerId, err)
	}
	c := fromInspectResponse(resp)
	if c.Id == "" {
		c.Id = containerId
	}
	return c, nil
}

func (dg *DockerGenerator) Close() error {
	return dg.cli.Close()
}
