package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/hostsfile"
)

// PreflightError is a startup problem the operator has to fix.
type PreflightError struct {
	Check       string
	Remediation string
	Err         error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("%s: %v\n%s", e.Check, e.Err, e.Remediation)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// Preflight verifies that the hosts file is writable and the Docker socket
// exists before any connection attempt is made.
func Preflight(cfg *config.AppConfig) error {
	f := hostsfile.NewFile(cfg.HostFileLocation, cfg.AtomicWrite)
	if err := f.CheckAccess(); err != nil {
		return &PreflightError{
			Check:       "hosts file " + cfg.HostFileLocation,
			Remediation: fmt.Sprintf("Make sure %s exists and is writable, e.g. mount it with -v /etc/hosts:%s.", cfg.HostFileLocation, cfg.HostFileLocation),
			Err:         err,
		}
	}

	socket, ok := dockerSocketPath(cfg.DockerSocket, os.Getenv("DOCKER_HOST"))
	if !ok {
		return nil
	}
	if _, err := os.Stat(socket); err != nil {
		return &PreflightError{
			Check:       "docker socket " + socket,
			Remediation: fmt.Sprintf("Make sure the Docker socket is available, e.g. mount it with -v /var/run/docker.sock:%s.", socket),
			Err:         err,
		}
	}
	return nil
}

// dockerSocketPath returns the unix socket the Docker client will dial, or
// false when DOCKER_HOST points at a non-unix endpoint.
func dockerSocketPath(configured, dockerHost string) (string, bool) {
	if dockerHost == "" {
		return configured, configured != ""
	}
	if path, found := strings.CutPrefix(dockerHost, "unix://"); found {
		return path, path != ""
	}
	return "", false
}
