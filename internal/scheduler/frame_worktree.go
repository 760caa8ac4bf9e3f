package scheduler

import (
	"context"

	"github.com/evmts/smithers/internal/node"
)

// runWorktreeNodes implements spec §4.4 step 9: worktree nodes resolve
// before any structural work (the worktree-gated agent nodes discovered at
// step 7) so their cwd is available by the time descendants execute.
func (fr *frameRunner) runWorktreeNodes(ctx context.Context) (bool, error) {
	tree := fr.tree
	var targets []*node.Node
	tree.Walk(0, func(n *node.Node) {
		if n.Type != node.TypeWorktree {
			return
		}
		if n.Execution == nil || n.Execution.Status == node.StatusPending {
			targets = append(targets, n)
		}
	})
	if len(targets) == 0 {
		return false, nil
	}

	changed := false
	for _, n := range targets {
		path := tree.Path(n.ID)
		hash := tree.ContentHash(n.ID)
		n.Execution = &node.ExecutionState{Status: node.StatusRunning, ContentHash: hash}

		mock := fr.mock || n.PropBool("_mockMode", false)
		fr.em.emit("node:execute:start", path, map[string]any{"nodeType": node.TypeWorktree})

		var werr error
		var absPath string
		switch {
		case mock:
			absPath = "/mock/worktree" + path
		case fr.sched.Worktrees != nil:
			absPath, werr = fr.sched.Worktrees.CreateWorktree(ctx, n, false)
		default:
			werr = errNoWorktreeMgr
		}

		if werr != nil {
			n.Execution.Status = node.StatusError
			n.Execution.Err = werr
			onError(n, werr)
		} else {
			n.Execution.Status = node.StatusComplete
			n.Execution.Result = absPath
			onFinished(n, absPath)
		}
		n.Execution.ContentHash = hash
		fr.sched.store.put(path, n.Execution)
		fr.em.emit("node:execute:end", path, map[string]any{"status": n.Execution.Status})
		changed = true
	}
	return changed, nil
}
