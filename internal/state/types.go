package state

import "errors"

var ErrEmptyContainerId = errors.New("container id must not be empty")

type containerState struct {
	ContainerId   string
	ContainerName string
	Hostnames     []string
}
