package registry

import (
	"context"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

type Registry interface {
	LockTransaction(ctx context.Context, key []string, fn func() error) error
	List(ctx context.Context) ([]StoredRecord, error)
	Register(ctx context.Context, record domain.HostRecord) error
	Remove(ctx context.Context, record StoredRecord) error
	Publish(ctx context.Context, records []domain.HostRecord) error
	Close() error
}

// StoredRecord is a host record together with the etcd key it lives under.
type StoredRecord struct {
	Key    string
	Record domain.HostRecord
}
