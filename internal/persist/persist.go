// Package persist implements spec §14's optional cross-restart persistence
// for the scheduler's execution store and approval set. Persistence is
// opt-in: a Scheduler with no Backend configured behaves exactly as before,
// keeping both in process memory only (spec.md's non-goal excludes
// *default* persistence, not an operator-requested one).
//
// Grounded on hector's pkg/config/koanf_loader.go multi-backend selection
// (file/consul/etcd/zookeeper picked by a ConfigType string), adapted from
// "load one config document from a KV store" to "checkpoint one run's
// state into a KV store keyed by run ID", using the same three client
// libraries hector already depends on for its own config backends.
package persist

import "context"

// NodeState is the JSON-safe projection of node.ExecutionState: Err is
// flattened to a string since errors do not round-trip through encoding/json.
type NodeState struct {
	Status      string `json:"status"`
	Result      any    `json:"result,omitempty"`
	Err         string `json:"err,omitempty"`
	ContentHash string `json:"contentHash"`
}

// Snapshot is everything a scheduler run needs to resume after a restart:
// the path-keyed execution store and the set of already-approved human
// checkpoints (spec §4.4 step 6, §3 invariant 5).
type Snapshot struct {
	Nodes     map[string]NodeState `json:"nodes"`
	Approvals []string             `json:"approvals"`
}

// Backend persists and retrieves one run's Snapshot. Implementations key
// storage by runID so a single backend (one consul cluster, one etcd
// cluster) can hold checkpoints for multiple concurrent Smithers runs.
type Backend interface {
	Save(ctx context.Context, runID string, snap Snapshot) error
	Load(ctx context.Context, runID string) (Snapshot, bool, error)
	Close() error
}
