package node

import (
	"fmt"
	"strings"
)

// Path returns the node path ROOT/typeA[i]/typeB[j]/... where each index
// counts prior siblings of the same type (not total position), per spec
// §4.3. Paths are the execution store's primary key (spec §3 invariant 5).
func (t *Tree) Path(id ID) string {
	if id == 0 {
		return string(TypeRoot)
	}
	var segments []string
	cur := id
	for cur != NoParent {
		n := t.Get(cur)
		if cur == 0 {
			break
		}
		parent := t.Parent(cur)
		var parentChildren []ID
		if parent != nil {
			parentChildren = parent.Children
		} else {
			parentChildren = []ID{cur}
		}
		idx := 0
		for _, sib := range parentChildren {
			if sib == cur {
				break
			}
			if t.Get(sib).Type == n.Type {
				idx++
			}
		}
		segments = append([]string{fmt.Sprintf("%s[%d]", n.Type, idx)}, segments...)
		cur = n.ParentID
	}
	return string(TypeRoot) + "/" + strings.Join(segments, "/")
}

// Paths returns a path -> ID map for every node reachable from root,
// witnessing the "Path uniqueness" law of spec §8 (a bijection between
// element nodes and path strings) when used on a well-formed tree.
func (t *Tree) Paths(root ID) map[string]ID {
	out := make(map[string]ID)
	t.Walk(root, func(n *Node) {
		out[t.Path(n.ID)] = n.ID
	})
	return out
}
