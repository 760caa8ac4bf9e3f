package scheduler

import "github.com/evmts/smithers/internal/node"

// Node-level callback props (onFinished, onError, onWritten, onApprove,
// onReject, onValueSet) are arbitrary functions stashed in Props, the same
// way React props carry event handlers. These helpers type-assert the
// expected signature and no-op when absent or mistyped, mirroring
// serialize's isCallable treatment of the same prop family.

func onFinished(n *node.Node, result any) {
	if v, ok := n.Prop("onFinished"); ok {
		if f, ok := v.(func(any)); ok {
			f(result)
		}
	}
}

func onError(n *node.Node, err error) {
	if v, ok := n.Prop("onError"); ok {
		if f, ok := v.(func(error)); ok {
			f(err)
		}
	}
}

func onWritten(n *node.Node, path string) {
	if v, ok := n.Prop("onWritten"); ok {
		if f, ok := v.(func(string)); ok {
			f(path)
		}
	}
}

func onApprove(n *node.Node) {
	if v, ok := n.Prop("onApprove"); ok {
		if f, ok := v.(func()); ok {
			f()
		}
	}
}

func onReject(n *node.Node) (handled bool) {
	v, ok := n.Prop("onReject")
	if !ok {
		return false
	}
	f, ok := v.(func())
	if !ok {
		return false
	}
	f()
	return true
}
