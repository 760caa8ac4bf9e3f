package persist

import "github.com/evmts/smithers/internal/node"

// FromExecutionStates builds a Snapshot from the raw maps
// scheduler.Scheduler.SnapshotState returns.
func FromExecutionStates(byPath map[string]*node.ExecutionState, approvalKeys []string) Snapshot {
	nodes := make(map[string]NodeState, len(byPath))
	for path, state := range byPath {
		ns := NodeState{
			Status:      string(state.Status),
			Result:      state.Result,
			ContentHash: state.ContentHash,
		}
		if state.Err != nil {
			ns.Err = state.Err.Error()
		}
		nodes[path] = ns
	}
	return Snapshot{Nodes: nodes, Approvals: approvalKeys}
}

// ToExecutionStates reverses FromExecutionStates, for feeding a loaded
// Snapshot into scheduler.Scheduler.RestoreState. The restored
// ExecutionState's Err is a plain error wrapping the stored message;
// RestoreState only consults ContentHash/Status/Result for its
// re-render comparison so this is lossless for every path that matters.
func ToExecutionStates(snap Snapshot) (map[string]*node.ExecutionState, []string) {
	byPath := make(map[string]*node.ExecutionState, len(snap.Nodes))
	for path, ns := range snap.Nodes {
		state := &node.ExecutionState{
			Status:      node.Status(ns.Status),
			Result:      ns.Result,
			ContentHash: ns.ContentHash,
		}
		if ns.Err != "" {
			state.Err = errString(ns.Err)
		}
		byPath[path] = state
	}
	return byPath, snap.Approvals
}

// errString is a trivial error implementation so a persisted error message
// round-trips without needing encoding/gob-style error registration.
type errString string

func (e errString) Error() string { return string(e) }
