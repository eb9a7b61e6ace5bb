package core

import (
	"context"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

type runtimeHandshaker interface {
	Handshake(ctx context.Context) (domain.RuntimeInfo, error)
}

type containerInspector interface {
	Inspect(ctx context.Context, containerId string) (domain.Container, error)
}

type generator interface {
	runtimeHandshaker
	containerInspector
	ListRunning(ctx context.Context) ([]string, error)
	Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error)
}

type containerRegistry interface {
	Upsert(containerId, containerName string, hostnames []string) error
	Remove(containerId string) bool
	Snapshot() []domain.ContainerRecord
}

type hostsStore interface {
	Path() string
	Read() (string, error)
	Write(content string) error
}

type upstreamRegistry interface {
	Publish(ctx context.Context, records []domain.HostRecord) error
}

type hostsWatcher interface {
	Run(ctx context.Context) error
}
