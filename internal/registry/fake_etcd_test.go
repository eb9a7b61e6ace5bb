package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeEtcd treats every Get as a prefix query.
type fakeEtcd struct {
	mu       sync.Mutex
	kv       map[string]string
	lockBusy bool
	grants   int
	revokes  int
	putErr   error
	closed   bool
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{kv: map[string]string{}}
}

func (f *fakeEtcd) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.kv {
		if strings.HasPrefix(k, key) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	resp := &clientv3.GetResponse{}
	for _, k := range keys {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(f.kv[k])})
	}
	return resp, nil
}

func (f *fakeEtcd) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.kv[key] = val
	return &clientv3.PutResponse{}, nil
}

func (f *fakeEtcd) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.kv, key)
	return &clientv3.DeleteResponse{}, nil
}

func (f *fakeEtcd) Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants++
	return &clientv3.LeaseGrantResponse{ID: clientv3.LeaseID(f.grants), TTL: ttl}, nil
}

func (f *fakeEtcd) Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes++
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcd) Txn(ctx context.Context) clientv3.Txn {
	return &fakeTxn{etcd: f}
}

func (f *fakeEtcd) Close() error {
	f.closed = true
	return nil
}

func (f *fakeEtcd) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeTxn struct {
	etcd *fakeEtcd
	ops  []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn { return t }

func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn {
	t.ops = append(t.ops, ops...)
	return t
}

func (t *fakeTxn) Else(ops ...clientv3.Op) clientv3.Txn { return t }

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	t.etcd.mu.Lock()
	defer t.etcd.mu.Unlock()
	if t.etcd.lockBusy {
		return &clientv3.TxnResponse{Succeeded: false}, nil
	}
	for _, op := range t.ops {
		t.etcd.kv[string(op.KeyBytes())] = string(op.ValueBytes())
	}
	return &clientv3.TxnResponse{Succeeded: true}, nil
}
