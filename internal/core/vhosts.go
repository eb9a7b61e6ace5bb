package core

import (
	"context"
	"strings"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

const defaultVhostSuffix = ".local"

// ResolveVhosts derives the virtual hostnames declared in env by the
// recognized variable names, in configured order. Values are comma separated
// and used verbatim. Without any declared hostname the container gets
// "<name>.local".
func ResolveVhosts(env []string, varNames []string, displayName string) []string {
	var hostnames []string
	for _, name := range varNames {
		for _, kv := range env {
			key, value, found := strings.Cut(kv, "=")
			if !found || key != name {
				continue
			}
			for _, token := range strings.Split(value, ",") {
				if token != "" {
					hostnames = append(hostnames, token)
				}
			}
		}
	}
	if len(hostnames) == 0 {
		return []string{DefaultVhost(displayName)}
	}
	return hostnames
}

// DefaultVhost is the hostname used for containers that declare none.
func DefaultVhost(displayName string) string {
	return strings.TrimPrefix(displayName, "/") + defaultVhostSuffix
}

// Resolver inspects containers and resolves their hostnames.
type Resolver struct {
	inspector containerInspector
	varNames  []string
}

func NewResolver(inspector containerInspector, varNames []string) *Resolver {
	return &Resolver{inspector: inspector, varNames: varNames}
}

// Resolve returns a registry record for the container.
func (r *Resolver) Resolve(ctx context.Context, containerId string) (domain.ContainerRecord, error) {
	c, err := r.inspector.Inspect(ctx, containerId)
	if err != nil {
		return domain.ContainerRecord{}, &ResolutionError{ContainerId: containerId, Err: err}
	}
	return domain.ContainerRecord{
		Id:        containerId,
		Name:      c.Name,
		Hostnames: ResolveVhosts(c.Env, r.varNames, c.Name),
	}, nil
}
