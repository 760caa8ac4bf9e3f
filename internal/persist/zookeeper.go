package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperBackend stores one znode per run under a configurable parent
// path, created on first Save and overwritten (via Set) thereafter.
// Grounded on pkg/config/zookeeper_provider.go's ZookeeperProvider
// (zk.Connect with a 10s session timeout, ReadBytes/Watch over a single
// path), extended from a single watched config path to a parent path
// holding one child znode per run ID.
type ZookeeperBackend struct {
	conn   *zk.Conn
	parent string
}

func NewZookeeperBackend(endpoints []string, parent string) (*ZookeeperBackend, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("zookeeper endpoints are required")
	}
	conn, _, err := zk.Connect(endpoints, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("zookeeper connect: %w", err)
	}
	b := &ZookeeperBackend{conn: conn, parent: parent}
	if err := b.ensureParent(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func (z *ZookeeperBackend) ensureParent() error {
	exists, _, err := z.conn.Exists(z.parent)
	if err != nil {
		return fmt.Errorf("zookeeper exists %s: %w", z.parent, err)
	}
	if exists {
		return nil
	}
	_, err = z.conn.Create(z.parent, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("zookeeper create %s: %w", z.parent, err)
	}
	return nil
}

func (z *ZookeeperBackend) path(runID string) string {
	return z.parent + "/" + runID
}

func (z *ZookeeperBackend) Save(ctx context.Context, runID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	p := z.path(runID)
	exists, stat, err := z.conn.Exists(p)
	if err != nil {
		return fmt.Errorf("zookeeper exists %s: %w", p, err)
	}
	if !exists {
		_, err = z.conn.Create(p, data, 0, zk.WorldACL(zk.PermAll))
		if err != nil {
			return fmt.Errorf("zookeeper create %s: %w", p, err)
		}
		return nil
	}
	_, err = z.conn.Set(p, data, stat.Version)
	if err != nil {
		return fmt.Errorf("zookeeper set %s: %w", p, err)
	}
	return nil
}

func (z *ZookeeperBackend) Load(ctx context.Context, runID string) (Snapshot, bool, error) {
	p := z.path(runID)
	exists, _, err := z.conn.Exists(p)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("zookeeper exists %s: %w", p, err)
	}
	if !exists {
		return Snapshot{}, false, nil
	}
	data, _, err := z.conn.Get(p)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("zookeeper get %s: %w", p, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (z *ZookeeperBackend) Close() error {
	z.conn.Close()
	return nil
}
