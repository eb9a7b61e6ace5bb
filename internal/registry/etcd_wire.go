package registry

import (
	"encoding/json"
	"fmt"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

type etcdRecord struct {
	Host               string `json:"host"`
	OwnerHostname      string `json:"owner_hostname"`
	OwnerContainerId   string `json:"owner_container_id"`
	OwnerContainerName string `json:"owner_container_name"`
}

func marshalEtcdValue(hr domain.HostRecord) (string, error) {
	wire := etcdRecord{
		Host:               hr.IP,
		OwnerHostname:      hr.Owner,
		OwnerContainerId:   hr.ContainerId,
		OwnerContainerName: hr.ContainerName,
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalEtcdValue(key string, raw string, prefix string) (domain.HostRecord, error) {
	var wire etcdRecord
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return domain.HostRecord{}, fmt.Errorf("decode etcd value: %w", err)
	}
	if wire.Host == "" {
		return domain.HostRecord{}, fmt.Errorf("missing host in etcd record %s", key)
	}
	return domain.HostRecord{
		Hostname:      fqdnFromKey(prefix, key),
		IP:            wire.Host,
		ContainerId:   wire.OwnerContainerId,
		ContainerName: wire.OwnerContainerName,
		Owner:         wire.OwnerHostname,
	}, nil
}
