package scheduler

import (
	"context"

	"github.com/evmts/smithers/internal/node"
)

// firstUnapprovedHuman finds the first human node (source order) whose
// (path, contentHash) has not already been granted (spec §4.4 step 6).
func (fr *frameRunner) firstUnapprovedHuman() *node.Node {
	tree := fr.tree
	var found *node.Node
	tree.Walk(0, func(n *node.Node) {
		if found != nil || n.Type != node.TypeHuman {
			return
		}
		path := tree.Path(n.ID)
		hash := tree.ContentHash(n.ID)
		if !fr.sched.approvals.isApproved(path, hash) {
			found = n
		}
	})
	return found
}

func (fr *frameRunner) handleHuman(ctx context.Context, n *node.Node) (frameOutcome, error) {
	tree := fr.tree
	path := tree.Path(n.ID)
	hash := tree.ContentHash(n.ID)
	message := n.PropString("message", "")
	content := tree.DirectText(n.ID)

	fr.em.emit("control:human", path, map[string]any{"message": message, "decided": false})

	approved := true
	var err error
	if fr.opts.OnHumanPrompt != nil {
		approved, err = fr.opts.OnHumanPrompt(ctx, message, content)
		if err != nil {
			return frameOutcome{}, err
		}
	}

	if approved {
		fr.sched.approvals.approve(path, hash)
		fr.em.emit("control:human", path, map[string]any{"message": message, "decided": true, "approved": true})
		onApprove(n)
		if err := fr.flush(ctx); err != nil {
			return frameOutcome{}, err
		}
		return frameOutcome{}, nil
	}

	fr.em.emit("control:human", path, map[string]any{"message": message, "decided": true, "approved": false})
	if onReject(n) {
		return frameOutcome{}, nil
	}
	fr.em.emit("loop:terminated", path, map[string]any{"reason": ReasonHumanRejected})
	return frameOutcome{terminated: true, reason: ReasonHumanRejected}, &Error{Kind: KindHumanRejected, NodePath: path, Frame: fr.frame, Message: "human node rejected with no onReject handler"}
}
