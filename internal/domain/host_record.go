package domain

import "fmt"

// HostRecord is a single hostname -> IP mapping published by a container.
type HostRecord struct {
	Hostname      string
	IP            string
	ContainerId   string
	ContainerName string
	Owner         string // host running the daemon
}

func (hr HostRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", hr.Hostname, hr.IP, hr.ContainerId, hr.Owner)
}

func (hr HostRecord) Render() string {
	return fmt.Sprintf("%s -> %s (container_id=%s, container_name=%s, owner=%s)", hr.Hostname, hr.IP, hr.ContainerId, hr.ContainerName, hr.Owner)
}

func (hr HostRecord) Equal(o HostRecord) bool {
	return hr.Key() == o.Key()
}
