package domain

import (
	"fmt"
	"strings"
)

// ContainerRecord is the registry entry for one running container.
type ContainerRecord struct {
	Id        string
	Name      string
	Hostnames []string
}

func (cr ContainerRecord) Render() string {
	return fmt.Sprintf("%s (container_id=%s, hostnames=%s)", cr.Name, cr.Id, strings.Join(cr.Hostnames, ","))
}

func (cr ContainerRecord) Clone() ContainerRecord {
	hostnames := make([]string, len(cr.Hostnames))
	copy(hostnames, cr.Hostnames)
	return ContainerRecord{Id: cr.Id, Name: cr.Name, Hostnames: hostnames}
}

// HostRecords flattens the record into one HostRecord per hostname.
func (cr ContainerRecord) HostRecords(ip, owner string) []HostRecord {
	out := make([]HostRecord, 0, len(cr.Hostnames))
	for _, h := range cr.Hostnames {
		out = append(out, HostRecord{
			Hostname:      h,
			IP:            ip,
			ContainerId:   cr.Id,
			ContainerName: cr.Name,
			Owner:         owner,
		})
	}
	return out
}
