package scheduler

import (
	"context"

	"github.com/evmts/smithers/internal/node"
)

// runFileNodes implements spec §4.4 step 4: file nodes execute before
// agent discovery so their contents are visible to concurrently rendered
// agents that depend on them.
func (fr *frameRunner) runFileNodes(ctx context.Context) (bool, error) {
	tree := fr.tree
	var targets []*node.Node
	tree.Walk(0, func(n *node.Node) {
		if n.Type != node.TypeFile {
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
		fr.em.emit("node:execute:start", path, map[string]any{"nodeType": node.TypeFile})

		if mock {
			n.Execution.Status = node.StatusComplete
			n.Execution.Result = "mock:" + path
			onWritten(n, filePropPath(n))
		} else if fr.sched.Files != nil {
			result, err := fr.sched.Files.WriteFile(ctx, n, false)
			if err != nil {
				n.Execution.Status = node.StatusError
				n.Execution.Err = err
				onError(n, err)
			} else {
				n.Execution.Status = node.StatusComplete
				n.Execution.Result = result
				onWritten(n, filePropPath(n))
			}
		} else {
			n.Execution.Status = node.StatusError
			n.Execution.Err = errNoFileWriter
		}

		n.Execution.ContentHash = hash
		fr.sched.store.put(path, n.Execution)
		fr.em.emit("node:execute:end", path, map[string]any{"status": n.Execution.Status})
		changed = true

		if err := fr.flush(ctx); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

func filePropPath(n *node.Node) string {
	return n.PropString("path", "")
}

func (fr *frameRunner) flush(ctx context.Context) error {
	if fr.sched.flusher == nil {
		return nil
	}
	return fr.sched.flusher.Flush(ctx)
}
