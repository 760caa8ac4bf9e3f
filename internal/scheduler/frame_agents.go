package scheduler

import (
	"context"

	"github.com/evmts/smithers/internal/node"
)

// agentTypes is the set of node types the scheduler treats as executable
// agent nodes (spec §4.4 step 7).
var agentTypes = map[node.Type]bool{
	node.TypeClaude:    true,
	node.TypeClaudeAPI: true,
	node.TypeClaudeCLI: true,
}

// discoverPendingAgents implements spec §4.4 step 7: find pending agent
// nodes, clearing stale execution records on a content-hash mismatch, and
// propagating (or lifting) the blockedByWorktree fail-closed state from a
// failed (or now-succeeded) ancestor worktree.
func (fr *frameRunner) discoverPendingAgents() []*node.Node {
	tree := fr.tree
	var pending []*node.Node

	tree.Walk(0, func(n *node.Node) {
		if !agentTypes[n.Type] {
			return
		}

		if wt := tree.NearestAncestor(n.ID, node.TypeWorktree); wt != nil {
			blocked := wt.Execution != nil && wt.Execution.Status == node.StatusError
			if blocked {
				n.Execution = &node.ExecutionState{Status: node.StatusError, BlockedByWorktree: true}
				return
			}
			if n.Execution != nil && n.Execution.BlockedByWorktree {
				n.Execution = nil // ancestor worktree now resolved; re-attempt
			}
		}

		if n.Execution == nil {
			pending = append(pending, n)
			return
		}
		if n.Execution.Status == node.StatusPending {
			pending = append(pending, n)
			return
		}
		if n.Execution.ContentHash != tree.ContentHash(n.ID) {
			n.Execution = nil
			pending = append(pending, n)
		}
	})
	return pending
}

// partition implements spec §4.4 step 10.
func (fr *frameRunner) partition(pending []*node.Node) (sequential, parallel []*node.Node) {
	tree := fr.tree
	for _, n := range pending {
		sub := tree.NearestAncestor(n.ID, node.TypeSubagent)
		if sub != nil && sub.PropBool("parallel", true) {
			parallel = append(parallel, n)
		} else {
			sequential = append(sequential, n)
		}
	}
	return sequential, parallel
}

// executeAgent dispatches a single pending agent node to its executor (spec
// §4.4 step 11, §4.5). It returns whether the node actually ran (false if
// skipped by the controller upstream or lacking an executor to even try),
// whether state changed (a callback fired), and the output to record as the
// frame's finalOutput when the node's onFinished callback produced one.
func (fr *frameRunner) executeAgent(ctx context.Context, n *node.Node) (ran bool, changed bool, finalOutput any) {
	tree := fr.tree
	path := tree.Path(n.ID)
	hash := tree.ContentHash(n.ID)

	injected := fr.maybeInject(n)
	if injected {
		defer fr.restoreChildren(n)
	}

	executor := fr.sched.Executors.forType(n.Type)
	n.Execution = &node.ExecutionState{Status: node.StatusRunning}
	fr.em.emit("node:execute:start", path, map[string]any{"nodeType": n.Type})

	if executor == nil {
		n.Execution.Status = node.StatusError
		n.Execution.Err = errNoExecutor
		n.Execution.ContentHash = hash
		fr.sched.store.put(path, n.Execution)
		fr.em.emit("node:execute:end", path, map[string]any{"status": node.StatusError})
		onError(n, errNoExecutor)
		return true, true, nil
	}

	model := n.PropString("model", "")
	providerPath := ""
	var providerNode *node.Node
	if provNode := tree.NearestAncestor(n.ID, node.TypeClaudeProvider); provNode != nil {
		providerPath = tree.Path(provNode.ID)
		providerNode = provNode
	}
	if providerPath != "" && fr.sched.Provider != nil {
		if err := fr.sched.Provider.Acquire(ctx, providerPath, providerNode, model); err != nil {
			n.Execution.Status = node.StatusError
			n.Execution.Err = err
			n.Execution.ContentHash = hash
			fr.sched.store.put(path, n.Execution)
			fr.em.emit("node:execute:end", path, map[string]any{"status": node.StatusError})
			onError(n, err)
			return true, true, nil
		}
	}

	var tools []PreparedTool
	if fr.sched.ToolPreparer != nil {
		prepared, err := fr.sched.ToolPreparer.Prepare(ctx, tree, n)
		if err != nil {
			n.Execution.Status = node.StatusError
			n.Execution.Err = err
			n.Execution.ContentHash = hash
			fr.sched.store.put(path, n.Execution)
			fr.em.emit("node:execute:end", path, map[string]any{"status": node.StatusError})
			onError(n, err)
			return true, true, nil
		}
		tools = prepared
	}

	result, err := executor.Execute(ctx, tree, n, path, ExecuteOptions{MockMode: fr.mock, Verbose: fr.opts.Verbose}, tools)

	if providerPath != "" && fr.sched.Provider != nil {
		fr.sched.Provider.Release(ctx, providerPath, providerNode, model, result.Usage)
	}

	if err != nil {
		n.Execution.Status = node.StatusError
		n.Execution.Err = err
		n.Execution.ContentHash = hash
		fr.sched.store.put(path, n.Execution)
		fr.em.emit("node:execute:end", path, map[string]any{"status": node.StatusError})
		onError(n, err)
		return true, true, nil
	}

	var out any = result.Text
	if result.Structured != nil {
		out = result.Structured
	}
	n.Execution.Status = node.StatusComplete
	n.Execution.Result = out
	n.Execution.ContentHash = hash
	fr.sched.store.put(path, n.Execution)
	fr.em.emit("node:execute:end", path, map[string]any{"status": node.StatusComplete})
	onFinished(n, out)
	return true, true, out
}

// maybeInject implements the `/inject` half of spec §4.7: prepend a TEXT
// child to the next pending node for this execution only. The scheduler
// treats "next pending" as whichever node is about to be dispatched, since
// by construction that is always the first still-pending node encountered
// in partition order.
func (fr *frameRunner) maybeInject(n *node.Node) bool {
	ctrl := fr.opts.Controller
	if ctrl == nil {
		return false
	}
	text, ok := ctrl.NextInjection()
	if !ok || text == "" {
		return false
	}
	txt := fr.tree.CreateTextInstance(text)
	if len(n.Children) == 0 {
		fr.tree.AppendChild(n.ID, txt)
	} else {
		fr.tree.InsertBefore(n.ID, txt, n.Children[0])
	}
	return true
}

func (fr *frameRunner) restoreChildren(n *node.Node) {
	if len(n.Children) == 0 {
		return
	}
	n.Children = n.Children[1:]
}
