package registry

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/auto-dns/docker-vhoster/internal/util"
	"github.com/rs/zerolog"
)

type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Close() error
}

var _ Registry = (*EtcdRegistry)(nil)

// EtcdRegistry mirrors host records into etcd using the SkyDNS key layout
// read by CoreDNS: <prefix>/<reversed labels>/x<n>.
type EtcdRegistry struct {
	client   etcdClient
	cfg      *config.EtcdConfig
	hostname string
	logger   zerolog.Logger
}

func NewEtcdRegistry(client etcdClient, cfg *config.EtcdConfig, hostname string, logger zerolog.Logger) *EtcdRegistry {
	return &EtcdRegistry{
		client:   client,
		cfg:      cfg,
		hostname: hostname,
		logger:   logger.With().Str("component", "etcd_registry").Logger(),
	}
}

// getNextIndexedKey returns the first free x<n> key below the FQDN's base key.
func (er *EtcdRegistry) getNextIndexedKey(ctx context.Context, fqdn string) (string, error) {
	baseKey := keyBaseForFQDN(er.cfg.PathPrefix, fqdn)

	resp, err := er.client.Get(ctx, baseKey+"/", clientv3.WithPrefix())
	if err != nil {
		return "", err
	}
	existingIndices := make(map[int]struct{})
	for _, kv := range resp.Kvs {
		if n, ok := indexFromKey(string(kv.Key)); ok {
			existingIndices[n] = struct{}{}
		}
	}
	index := 1
	for {
		if _, exists := existingIndices[index]; !exists {
			break
		}
		index++
	}
	return fmt.Sprintf("%s/x%d", baseKey, index), nil
}

// Register stores the record under a fresh indexed key.
func (er *EtcdRegistry) Register(ctx context.Context, hr domain.HostRecord) error {
	key, err := er.getNextIndexedKey(ctx, hr.Hostname)
	if err != nil {
		return err
	}
	value, err := marshalEtcdValue(hr)
	if err != nil {
		return err
	}
	if _, err := er.client.Put(ctx, key, value); err != nil {
		return err
	}
	er.logger.Info().Msgf("Registered %s at %s", hr.Render(), key)
	return nil
}

func (er *EtcdRegistry) Remove(ctx context.Context, sr StoredRecord) error {
	if _, err := er.client.Delete(ctx, sr.Key); err != nil {
		er.logger.Warn().Err(err).Msgf("Failed to delete key %s", sr.Key)
		return err
	}
	er.logger.Info().Msgf("Deleted key %s", sr.Key)
	return nil
}

// List retrieves all records stored under the configured prefix. Values that
// cannot be decoded belong to someone else and are skipped.
func (er *EtcdRegistry) List(ctx context.Context) ([]StoredRecord, error) {
	resp, err := er.client.Get(ctx, er.cfg.PathPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	var records []StoredRecord
	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		hr, err := unmarshalEtcdValue(key, string(kv.Value), er.cfg.PathPrefix)
		if err != nil {
			er.logger.Debug().Err(err).Msgf("Skipping key %s", key)
			continue
		}
		records = append(records, StoredRecord{Key: key, Record: hr})
	}
	return records, nil
}

// Publish makes the records owned by this host in etcd equal to records.
func (er *EtcdRegistry) Publish(ctx context.Context, records []domain.HostRecord) error {
	return er.LockTransaction(ctx, []string{"docker-vhoster/" + er.hostname}, func() error {
		stored, err := er.List(ctx)
		if err != nil {
			return fmt.Errorf("list etcd records: %w", err)
		}
		owned := util.Filter(stored, func(sr StoredRecord) bool {
			return sr.Record.Owner == er.hostname
		})
		toAdd, toRemove := diffRecords(owned, records)
		for _, sr := range toRemove {
			if err := er.Remove(ctx, sr); err != nil {
				return err
			}
		}
		for _, hr := range toAdd {
			if err := er.Register(ctx, hr); err != nil {
				return err
			}
		}
		if len(toAdd)+len(toRemove) > 0 {
			er.logger.Info().Msgf("Published %d records to etcd (%d added, %d removed)", len(records), len(toAdd), len(toRemove))
		}
		return nil
	})
}

// LockTransaction acquires a lease-backed lock on every key, runs fn and
// releases the locks in reverse order.
func (er *EtcdRegistry) LockTransaction(ctx context.Context, keys []string, fn func() error) error {
	var leases []heldLease
	defer func() {
		for i := len(leases) - 1; i >= 0; i-- {
			l := leases[i]
			if _, err := er.client.Delete(ctx, l.lockKey); err != nil {
				er.logger.Warn().Err(err).Msgf("failed to delete lock key %s", l.lockKey)
			}
			if _, err := er.client.Revoke(ctx, l.lease); err != nil {
				er.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", l.lockKey)
			}
		}
	}()

	for _, key := range keys {
		lockKey := fmt.Sprintf("/locks/%s", key)
		leaseResp, err := er.client.Grant(ctx, int64(er.cfg.LockTTL))
		if err != nil {
			return fmt.Errorf("failed to create lease: %w", err)
		}
		acquired, err := er.acquire(ctx, lockKey, leaseResp.ID)
		if err != nil {
			return err
		}
		if !acquired {
			if _, err := er.client.Revoke(ctx, leaseResp.ID); err != nil {
				er.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", lockKey)
			}
			return fmt.Errorf("failed to acquire lock on %s", key)
		}
		leases = append(leases, heldLease{lockKey: lockKey, lease: leaseResp.ID})
	}

	return fn()
}

func (er *EtcdRegistry) acquire(ctx context.Context, lockKey string, lease clientv3.LeaseID) (bool, error) {
	deadline := time.Now().Add(seconds(er.cfg.LockTimeout))
	for {
		txnResp, err := er.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(lockKey), "=", 0)).
			Then(clientv3.OpPut(lockKey, er.hostname, clientv3.WithLease(lease))).
			Commit()
		if err != nil {
			return false, err
		}
		if txnResp.Succeeded {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(seconds(er.cfg.LockRetryInterval)):
		}
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (er *EtcdRegistry) Close() error {
	return er.client.Close()
}
