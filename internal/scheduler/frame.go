package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evmts/smithers/internal/node"
)

// frameOutcome summarizes one frame's work for the scheduler's termination
// test (spec §4.4 step 14: quiescent iff nothing changed and nothing is
// still pending).
type frameOutcome struct {
	terminated     bool
	reason         TerminationReason
	stateChanged   bool
	executed       []string
	hasPendingWork bool
	finalOutput    any
}

// frameRunner executes one pass of the per-frame state machine (spec §4.4
// steps 4-13) against a single rendered tree.
type frameRunner struct {
	sched *Scheduler
	tree  *node.Tree
	opts  Options
	em    *emitter
	mock  bool
	frame int
}

func (fr *frameRunner) run(ctx context.Context) (frameOutcome, error) {
	s, tree := fr.sched, fr.tree

	// Step 8 (pause/abort half): checkpoint at the top of the frame.
	if ctrl := fr.opts.Controller; ctrl != nil {
		if ctrl.IsAborted() {
			fr.em.emit("control:abort", "", map[string]any{"reason": ctrl.AbortReason()})
			return frameOutcome{terminated: true, reason: ReasonAbort}, &Error{Kind: KindControllerAbort, Frame: fr.frame, Message: ctrl.AbortReason()}
		}
		for ctrl.IsPaused() {
			select {
			case <-ctx.Done():
				return frameOutcome{terminated: true, reason: ReasonAbort}, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			if ctrl.IsAborted() {
				fr.em.emit("control:abort", "", map[string]any{"reason": ctrl.AbortReason()})
				return frameOutcome{terminated: true, reason: ReasonAbort}, &Error{Kind: KindControllerAbort, Frame: fr.frame, Message: ctrl.AbortReason()}
			}
		}
	}

	stateChanged := false
	var executed []string

	// Step 4: file nodes first.
	changed, err := fr.runFileNodes(ctx)
	if err != nil {
		return frameOutcome{}, err
	}
	stateChanged = stateChanged || changed

	// Step 5: stop check.
	if stopNode := findFirstInSourceOrder(tree, node.TypeStop); stopNode != nil {
		reason, _ := stopNode.Prop("reason")
		fr.em.emit("control:stop", tree.Path(stopNode.ID), map[string]any{"reason": reason})
		fr.em.emit("loop:terminated", "", map[string]any{"reason": ReasonStopNode})
		return frameOutcome{terminated: true, reason: ReasonStopNode}, nil
	}

	// Step 6: human check.
	if human := fr.firstUnapprovedHuman(); human != nil {
		outcome, err := fr.handleHuman(ctx, human)
		if outcome.terminated || err != nil {
			return outcome, err
		}
		// Approval or rejection handled: flush and let the next frame re-render.
		return frameOutcome{stateChanged: true, hasPendingWork: true}, nil
	}

	// Step 7: discover pending executables, resolving blockedByWorktree.
	pending := fr.discoverPendingAgents()

	// Step 9: worktree nodes first among structural work.
	wtChanged, err := fr.runWorktreeNodes(ctx)
	if err != nil {
		return frameOutcome{}, err
	}
	stateChanged = stateChanged || wtChanged
	if wtChanged {
		// A worktree just resolved; re-discover so newly-unblocked
		// descendants are considered this same frame.
		pending = fr.discoverPendingAgents()
	}

	// Step 10: partition executables.
	seq, par := fr.partition(pending)

	// Step 11: sequential pass. The first node whose callback fires breaks
	// out, letting the caller flush and re-render (spec §5 "the first one
	// whose callback fires breaks out of the sequential pass").
	for _, n := range seq {
		if skip, ok := fr.consultSkip(tree.Path(n.ID)); ok {
			fr.markSkipped(n, skip)
			stateChanged = true
			continue
		}
		ran, changed, out := fr.executeAgent(ctx, n)
		if !ran {
			continue
		}
		executed = append(executed, tree.Path(n.ID))
		if changed {
			stateChanged = true
			if out != nil {
				return frameOutcome{stateChanged: true, executed: executed, hasPendingWork: true, finalOutput: out}, nil
			}
			break
		}
	}

	// Step 12: parallel pass. All callbacks land in one synchronous batch
	// (spec §5): the scheduler waits for every goroutine before returning.
	if len(par) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		results := make([]bool, len(par))
		for i, n := range par {
			i, n := i, n
			g.Go(func() error {
				if skip, ok := fr.consultSkip(tree.Path(n.ID)); ok {
					fr.markSkipped(n, skip)
					results[i] = true
					return nil
				}
				ran, changed, _ := fr.executeAgent(gctx, n)
				results[i] = ran && changed
				return nil
			})
		}
		_ = g.Wait()
		for i, n := range par {
			if results[i] {
				stateChanged = true
				executed = append(executed, tree.Path(n.ID))
			}
		}
	}

	hasPending := len(pending) > len(executed)
	return frameOutcome{stateChanged: stateChanged, executed: executed, hasPendingWork: hasPending}, nil
}

func findFirstInSourceOrder(tree *node.Tree, typ node.Type) *node.Node {
	var found *node.Node
	tree.Walk(0, func(n *node.Node) {
		if found == nil && n.Type == typ {
			found = n
		}
	})
	return found
}

func (fr *frameRunner) consultSkip(path string) (node.Status, bool) {
	ctrl := fr.opts.Controller
	if ctrl == nil {
		return "", false
	}
	target, ok := ctrl.NextSkip()
	if !ok || target != path {
		return "", false
	}
	return node.StatusComplete, true
}

func (fr *frameRunner) markSkipped(n *node.Node, status node.Status) {
	hash := fr.tree.ContentHash(n.ID)
	n.Execution = &node.ExecutionState{Status: status, ContentHash: hash}
	fr.sched.store.put(fr.tree.Path(n.ID), n.Execution)
}
