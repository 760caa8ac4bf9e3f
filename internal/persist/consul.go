package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/consul/api"
)

// ConsulBackend stores one JSON blob per run under a configurable KV
// prefix. Grounded on pkg/config/koanf_loader.go's consul config-type
// branch (api.DefaultConfig, consulConfig.Address = first endpoint),
// narrowed from koanf's read-only config provider to a read/write KV
// client since checkpointing needs Put as well as Get.
type ConsulBackend struct {
	kv     *api.KV
	prefix string
}

func NewConsulBackend(address, prefix string) (*ConsulBackend, error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &ConsulBackend{kv: client.KV(), prefix: prefix}, nil
}

func (c *ConsulBackend) key(runID string) string {
	return c.prefix + "/" + runID
}

func (c *ConsulBackend) Save(ctx context.Context, runID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = c.kv.Put(&api.KVPair{Key: c.key(runID), Value: data}, nil)
	if err != nil {
		return fmt.Errorf("consul put %s: %w", c.key(runID), err)
	}
	return nil
}

func (c *ConsulBackend) Load(ctx context.Context, runID string) (Snapshot, bool, error) {
	pair, _, err := c.kv.Get(c.key(runID), nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("consul get %s: %w", c.key(runID), err)
	}
	if pair == nil {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(pair.Value, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (c *ConsulBackend) Close() error { return nil }
