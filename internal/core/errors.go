package core

import "fmt"

// ResolutionError is returned when a container's hostnames cannot be derived,
// typically because it vanished between the event and the inspection.
type ResolutionError struct {
	ContainerId string
	Err         error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve vhosts for container %s: %v", e.ContainerId, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
