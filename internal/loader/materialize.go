package loader

import "github.com/evmts/smithers/internal/node"

// Materialize drives the host ops (spec §4.1) to turn a loaded Element
// into a node.Tree, exactly as a custom-renderer reconciler would drive
// createInstance/appendChild while committing a host-component tree.
func Materialize(el Element) *node.Tree {
	t := node.NewTree()
	appendElement(t, 0, el)
	return t
}

func appendElement(t *node.Tree, parent node.ID, el Element) {
	if el.Type == string(node.TypeText) || (el.Type == "" && el.Text != "") {
		txt := t.CreateTextInstance(el.Text)
		t.AppendInitialChild(parent, txt)
		return
	}

	props := make([]node.Prop, 0, len(el.Props))
	for _, p := range el.Props {
		props = append(props, node.Prop{Key: p.Key, Value: p.Value})
	}
	id := t.CreateInstance(node.Type(el.Type), props)
	t.AppendInitialChild(parent, id)
	for _, c := range el.Children {
		appendElement(t, id, c)
	}
}
