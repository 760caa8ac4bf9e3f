// Package scheduler implements the Ralph loop (spec §4.4): the
// render -> execute -> re-render fixed point that drives a Smithers plan to
// completion. Grounded on hector's workflow/executor.go ExecutionContext
// (status tracking, shared-state map, accumulated errors) and
// reasoning/default.go's iterate-until-terminated engine shape, adapted from
// a single-pass reasoning loop to a multi-frame reconciliation loop with an
// execution store keyed by node path rather than a linear history.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/serialize"
)

const defaultMaxFrames = 100

// RenderFunc rebuilds the element tree for frame k, mirroring the host's
// "wrap element in a shim that forces reconciliation" step (spec §4.4 step
// 2). Callers whose tree has no frame-dependent structure (the common case
// for a statically authored DSL tree) may leave this nil; the Scheduler then
// reuses the tree it was constructed with on every frame.
type RenderFunc func(frame int) *node.Tree

// Scheduler holds the collaborators the Ralph loop dispatches to. All
// fields are optional except Tree; a nil collaborator degrades gracefully
// (e.g. a nil RateBudgetProvider means no rate limiting is enforced).
type Scheduler struct {
	Tree   *node.Tree
	Render RenderFunc

	Executors    Executors
	ToolPreparer ToolPreparer
	Files        FileWriter
	Worktrees    WorktreeManager
	Provider     RateBudgetProvider
	Sink         EventSink

	store     *executionStore
	approvals *approvalSet
	flusher   *node.Flusher
}

// New constructs a Scheduler over an already-materialized tree.
func New(tree *node.Tree) *Scheduler {
	return &Scheduler{
		Tree:      tree,
		store:     newExecutionStore(),
		approvals: newApprovalSet(),
		flusher:   node.NewFlusher(),
	}
}

// ExecutePlan runs the Ralph loop to completion or failure (spec §4.4's
// top-level contract `executePlan(element, options) -> ExecutionResult`).
func (s *Scheduler) ExecutePlan(ctx context.Context, opts Options) ExecutionResult {
	maxFrames := opts.MaxFrames
	if maxFrames <= 0 {
		maxFrames = defaultMaxFrames
	}
	start := time.Now()
	mock := resolveMockMode(opts.MockMode)

	var finalOutput any

	for frame := 1; frame <= maxFrames; frame++ {
		em := &emitter{sink: s.Sink, cfg: opts.Debug, frame: frame}

		// Step 1: timeout check.
		if opts.Timeout > 0 && time.Since(start) > opts.Timeout {
			em.emit("loop:terminated", "", map[string]any{"reason": ReasonTimeout})
			return ExecutionResult{Status: ReasonTimeout, Frames: frame - 1, Err: &Error{Kind: KindSchedulerTimeout, Frame: frame, Message: "execution exceeded timeout"}, Elapsed: time.Since(start)}
		}

		// Step 2: render.
		tree := s.currentTree(frame)
		em.emit("frame:render", "", debugTreeSnapshot(opts.Debug, tree))
		if opts.OnPlan != nil {
			opts.OnPlan(serialize.Serialize(tree, 0), frame)
		}

		// Step 3: restore execution state from the store.
		s.restoreExecutionState(tree)

		if opts.OnFrameUpdate != nil {
			opts.OnFrameUpdate(tree, frame)
		}

		fr := frameRunner{
			sched: s,
			tree:  tree,
			opts:  opts,
			em:    em,
			mock:  mock,
			frame: frame,
		}

		outcome, err := fr.run(ctx)
		if outcome.terminated {
			if opts.OnFrame != nil {
				opts.OnFrame(FrameResult{Frame: frame, StateChanged: outcome.stateChanged, Executed: outcome.executed})
			}
			return ExecutionResult{
				Status:      outcome.reason,
				Frames:      frame,
				FinalOutput: finalOutput,
				Err:         err,
				Elapsed:     time.Since(start),
			}
		}
		if outcome.finalOutput != nil {
			finalOutput = outcome.finalOutput
		}

		if opts.OnFrame != nil {
			opts.OnFrame(FrameResult{Frame: frame, StateChanged: outcome.stateChanged, Executed: outcome.executed})
		}

		// Step 14: termination test. No pending work and nothing changed
		// this frame means the fixed point has been reached.
		if !outcome.stateChanged && !outcome.hasPendingWork {
			return ExecutionResult{
				Status:      ReasonQuiescent,
				Frames:      frame,
				FinalOutput: finalOutput,
				Elapsed:     time.Since(start),
			}
		}
	}

	return ExecutionResult{
		Status:  ReasonMaxFrames,
		Frames:  maxFrames,
		Err:     &Error{Kind: KindMaxFramesReached, Frame: maxFrames, Message: fmt.Sprintf("exceeded maxFrames=%d", maxFrames)},
		Elapsed: time.Since(start),
	}
}

func (s *Scheduler) currentTree(frame int) *node.Tree {
	if s.Render != nil {
		t := s.Render(frame)
		s.Tree = t
		return t
	}
	return s.Tree
}

func resolveMockMode(v *bool) bool {
	if v != nil {
		return *v
	}
	return false
}

// restoreExecutionState implements spec §4.4 step 3: for every node whose
// path has a store entry, reattach it verbatim if the content hash still
// matches, else leave the node to re-execute.
func (s *Scheduler) restoreExecutionState(tree *node.Tree) {
	tree.Walk(0, func(n *node.Node) {
		if n.Type == node.TypeText || n.Type == node.TypeRoot {
			return
		}
		path := tree.Path(n.ID)
		stored, ok := s.store.get(path)
		if !ok {
			return
		}
		hash := tree.ContentHash(n.ID)
		if stored.ContentHash == hash {
			n.Execution = stored.Clone()
		}
	})
}

func debugTreeSnapshot(cfg DebugConfig, tree *node.Tree) map[string]any {
	if !cfg.CaptureTree {
		return nil
	}
	return map[string]any{"tree": tree}
}
