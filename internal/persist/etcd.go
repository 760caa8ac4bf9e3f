package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdBackend stores one key per run under a configurable prefix.
// go.etcd.io/etcd/client/v3 is a hector dependency (pulled in for its own
// koanf-backed config loader's etcd option) with no direct-use site in the
// teacher repo itself; here it gets one: the natural etcd analogue of
// ConsulBackend/ZookeeperBackend, a flat key-value Put/Get over one
// client connection.
type EtcdBackend struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdBackend(endpoints []string, prefix string) (*EtcdBackend, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd client: %w", err)
	}
	return &EtcdBackend{client: client, prefix: prefix}, nil
}

func (e *EtcdBackend) key(runID string) string {
	return e.prefix + "/" + runID
}

func (e *EtcdBackend) Save(ctx context.Context, runID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := e.client.Put(ctx, e.key(runID), string(data)); err != nil {
		return fmt.Errorf("etcd put %s: %w", e.key(runID), err)
	}
	return nil
}

func (e *EtcdBackend) Load(ctx context.Context, runID string) (Snapshot, bool, error) {
	resp, err := e.client.Get(ctx, e.key(runID))
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("etcd get %s: %w", e.key(runID), err)
	}
	if len(resp.Kvs) == 0 {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(resp.Kvs[0].Value, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (e *EtcdBackend) Close() error {
	return e.client.Close()
}
