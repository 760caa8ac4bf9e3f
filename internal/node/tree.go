package node

import (
	"fmt"
	"strings"
)

// Tree is the host's arena-indexed retained tree. Nodes are never moved
// between arenas; Children/ParentID are the only mutable relations, which
// keeps ancestor walks (nearest-subagent, nearest-worktree) and removal
// O(1) pointer-free operations instead of pointer-chasing.
type Tree struct {
	nodes []*Node
}

// NewTree creates a tree with a single ROOT node at ID 0.
func NewTree() *Tree {
	t := &Tree{}
	root := &Node{ID: 0, Type: TypeRoot, ParentID: NoParent}
	t.nodes = append(t.nodes, root)
	return t
}

// Root returns the tree's root node (always ID 0).
func (t *Tree) Root() *Node { return t.nodes[0] }

// Get returns the node at id. Panics on an out-of-range id: this is a host
// bug (the host only ever hands out IDs it allocated), never caller error.
func (t *Tree) Get(id ID) *Node {
	if int(id) < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("node: invalid id %d", id))
	}
	return t.nodes[id]
}

// CreateInstance implements the host op of the same name (spec §4.1):
// sets type, copies props (Children is never part of Props), creates an
// empty Children slice.
func (t *Tree) CreateInstance(typ Type, props []Prop) ID {
	n := &Node{
		ID:       ID(len(t.nodes)),
		Type:     typ,
		Props:    append([]Prop(nil), props...),
		ParentID: NoParent,
	}
	t.nodes = append(t.nodes, n)
	return n.ID
}

// CreateTextInstance implements the host op of the same name.
func (t *Tree) CreateTextInstance(text string) ID {
	n := &Node{
		ID:       ID(len(t.nodes)),
		Type:     TypeText,
		Value:    text,
		ParentID: NoParent,
	}
	t.nodes = append(t.nodes, n)
	return n.ID
}

// AppendInitialChild is an alias for AppendChild used during initial mount,
// kept distinct per spec §4.1 to mirror the host-op vocabulary the
// underlying UI library expects (both behave identically here).
func (t *Tree) AppendInitialChild(parent, child ID) { t.AppendChild(parent, child) }

// AppendChild appends child to parent.Children and sets child.ParentID.
func (t *Tree) AppendChild(parent, child ID) {
	p := t.Get(parent)
	c := t.Get(child)
	p.Children = append(p.Children, child)
	c.ParentID = parent
}

// AppendChildToContainer appends child directly under the container (ROOT).
func (t *Tree) AppendChildToContainer(container, child ID) {
	t.AppendChild(container, child)
}

// InsertBefore inserts child into parent.Children immediately before
// `before`, preserving insertion order for the remaining siblings.
func (t *Tree) InsertBefore(parent, child, before ID) {
	p := t.Get(parent)
	c := t.Get(child)
	idx := indexOf(p.Children, before)
	if idx < 0 {
		p.Children = append(p.Children, child)
	} else {
		p.Children = append(p.Children, 0)
		copy(p.Children[idx+1:], p.Children[idx:])
		p.Children[idx] = child
	}
	c.ParentID = parent
}

// InsertInContainerBefore is InsertBefore at the container (ROOT) level.
func (t *Tree) InsertInContainerBefore(container, child, before ID) {
	t.InsertBefore(container, child, before)
}

// RemoveChild detaches child from parent.Children and clears its weak
// parent back-reference, per spec §4.1 ("also clear child.parent").
func (t *Tree) RemoveChild(parent, child ID) {
	p := t.Get(parent)
	idx := indexOf(p.Children, child)
	if idx >= 0 {
		p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	}
	t.Get(child).ParentID = NoParent
}

// RemoveChildFromContainer is RemoveChild at the container (ROOT) level.
func (t *Tree) RemoveChildFromContainer(container, child ID) {
	t.RemoveChild(container, child)
}

// CommitTextUpdate sets a TEXT node's value in place.
func (t *Tree) CommitTextUpdate(text ID, newValue string) {
	t.Get(text).Value = newValue
}

// PrepareUpdate returns the new prop set if any non-children prop changed,
// or nil if nothing changed (spec §4.1: "a non-null payload iff any
// non-children prop changed").
func PrepareUpdate(oldProps, newProps []Prop) []Prop {
	if propsEqual(oldProps, newProps) {
		return nil
	}
	return append([]Prop(nil), newProps...)
}

// CommitUpdate replaces a node's props wholesale, leaving Children intact.
func (t *Tree) CommitUpdate(id ID, newProps []Prop) {
	t.Get(id).Props = append([]Prop(nil), newProps...)
}

// ShouldSetTextContent reports whether the proposed children are a single
// string/number, which the host coalesces into a text instance rather
// than a child element (spec §4.1).
func ShouldSetTextContent(children []any) bool {
	if len(children) != 1 {
		return false
	}
	switch children[0].(type) {
	case string, int, int64, float64:
		return true
	default:
		return false
	}
}

// Parent returns the parent node of n, or nil for ROOT.
func (t *Tree) Parent(n ID) *Node {
	p := t.Get(n).ParentID
	if p == NoParent {
		return nil
	}
	return t.Get(p)
}

// NearestAncestor walks from n's parent upward, returning the first node
// whose Type matches typ, or nil if none does. Used for nearest-subagent
// (parallel dispatch grouping, spec §4.4 step 10) and nearest-worktree
// (cwd injection / failure propagation, spec §4.4 steps 7 and 9) lookups.
func (t *Tree) NearestAncestor(n ID, typ Type) *Node {
	cur := t.Get(n).ParentID
	for cur != NoParent {
		node := t.Get(cur)
		if node.Type == typ {
			return node
		}
		cur = node.ParentID
	}
	return nil
}

// Walk visits every node reachable from root in pre-order (source order),
// matching spec §4.4's "pre-order walk of the tree (source order)" tie
// breaking rule for pending-node discovery.
func (t *Tree) Walk(root ID, visit func(*Node)) {
	n := t.Get(root)
	visit(n)
	for _, c := range n.Children {
		t.Walk(c, visit)
	}
}

// DirectText concatenates the TEXT value of id's immediate TEXT children,
// in source order, ignoring any element children. Used by the File side
// effect (spec §4.6: "Content is the flattened TEXT content of the node").
func (t *Tree) DirectText(id ID) string {
	n := t.Get(id)
	var b strings.Builder
	for _, c := range n.Children {
		child := t.Get(c)
		if child.Type == TypeText {
			b.WriteString(child.Value)
		}
	}
	return b.String()
}

// FlattenText concatenates every TEXT descendant of id in pre-order,
// skipping element tags entirely. Used for prompt construction when a node
// has no plan children (spec §4.5 "the prompt is the tree's flattened TEXT
// content").
func (t *Tree) FlattenText(id ID) string {
	var b strings.Builder
	t.Walk(id, func(n *Node) {
		if n.Type == TypeText {
			b.WriteString(n.Value)
		}
	})
	return b.String()
}

func indexOf(ids []ID, target ID) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func propsEqual(a, b []Prop) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
		if fmt.Sprint(a[i].Value) != fmt.Sprint(b[i].Value) {
			return false
		}
	}
	return true
}
