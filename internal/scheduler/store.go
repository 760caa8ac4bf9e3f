package scheduler

import "github.com/evmts/smithers/internal/node"

// executionStore is the scheduler-owned, path-keyed record of every node's
// last-known execution state (spec §3 invariant 5: "the execution store's
// primary key is the node path, not node identity" — a node re-created at
// the same path on re-render still finds its prior result). Mutated only
// between frames, never across concurrent code paths (spec §5 "Shared
// resources").
type executionStore struct {
	byPath map[string]*node.ExecutionState
}

func newExecutionStore() *executionStore {
	return &executionStore{byPath: make(map[string]*node.ExecutionState)}
}

func (s *executionStore) get(path string) (*node.ExecutionState, bool) {
	e, ok := s.byPath[path]
	return e, ok
}

func (s *executionStore) put(path string, e *node.ExecutionState) {
	s.byPath[path] = e.Clone()
}

func (s *executionStore) delete(path string) {
	delete(s.byPath, path)
}

// approvalSet tracks which (path, contentHash) human-approval pairs have
// already been granted (spec §4.4 step 6), so a re-rendered human node with
// an unchanged prompt is never re-asked.
type approvalSet struct {
	approved map[string]bool
}

func newApprovalSet() *approvalSet {
	return &approvalSet{approved: make(map[string]bool)}
}

func approvalKey(path, contentHash string) string { return path + ":" + contentHash }

func (a *approvalSet) isApproved(path, contentHash string) bool {
	return a.approved[approvalKey(path, contentHash)]
}

func (a *approvalSet) approve(path, contentHash string) {
	a.approved[approvalKey(path, contentHash)] = true
}

// SnapshotState returns a defensive copy of the execution store and the
// set of approval keys (spec §14: optional cross-restart persistence).
// Scheduler intentionally exposes only raw maps/slices here rather than
// importing internal/persist, so a caller (cmd/smithers) owns the choice
// of whether and how to externalize this state.
func (s *Scheduler) SnapshotState() (byPath map[string]*node.ExecutionState, approvalKeys []string) {
	byPath = make(map[string]*node.ExecutionState, len(s.store.byPath))
	for path, state := range s.store.byPath {
		byPath[path] = state.Clone()
	}
	approvalKeys = make([]string, 0, len(s.approvals.approved))
	for key := range s.approvals.approved {
		approvalKeys = append(approvalKeys, key)
	}
	return byPath, approvalKeys
}

// RestoreState seeds the execution store and approval set from a prior
// SnapshotState, e.g. one loaded from an internal/persist.Backend at
// process start. Safe to call only before the first ExecutePlan frame.
func (s *Scheduler) RestoreState(byPath map[string]*node.ExecutionState, approvalKeys []string) {
	for path, state := range byPath {
		s.store.put(path, state)
	}
	for _, key := range approvalKeys {
		s.approvals.approved[key] = true
	}
}
