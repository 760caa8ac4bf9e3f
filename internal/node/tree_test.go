package node

import "testing"

func buildSample(t *Tree) (claudeA, claudeB ID) {
	sub := t.CreateInstance(TypeSubagent, []Prop{{Key: "parallel", Value: true}})
	t.AppendChild(0, sub)

	claudeA = t.CreateInstance(TypeClaude, []Prop{{Key: "model", Value: "claude-sonnet-4-5"}})
	txtA := t.CreateTextInstance("A")
	t.AppendChild(claudeA, txtA)
	t.AppendChild(sub, claudeA)

	claudeB = t.CreateInstance(TypeClaude, []Prop{{Key: "model", Value: "claude-sonnet-4-5"}})
	txtB := t.CreateTextInstance("B")
	t.AppendChild(claudeB, txtB)
	t.AppendChild(sub, claudeB)

	return claudeA, claudeB
}

func TestAppendChildSetsParent(t *testing.T) {
	tree := NewTree()
	a, b := buildSample(tree)
	if tree.Parent(a).Type != TypeSubagent {
		t.Fatalf("expected claude A's parent to be subagent")
	}
	if tree.Parent(b).Type != TypeSubagent {
		t.Fatalf("expected claude B's parent to be subagent")
	}
}

func TestRemoveChildClearsParent(t *testing.T) {
	tree := NewTree()
	a, _ := buildSample(tree)
	sub := tree.Parent(a).ID
	tree.RemoveChild(sub, a)
	if tree.Get(a).ParentID != NoParent {
		t.Fatalf("expected parent cleared after removal")
	}
	for _, c := range tree.Get(sub).Children {
		if c == a {
			t.Fatalf("expected child removed from parent.Children")
		}
	}
}

func TestInsertBeforePreservesOrder(t *testing.T) {
	tree := NewTree()
	p := tree.CreateInstance(TypePhase, nil)
	tree.AppendChild(0, p)
	x := tree.CreateTextInstance("x")
	z := tree.CreateTextInstance("z")
	tree.AppendChild(p, x)
	tree.AppendChild(p, z)

	y := tree.CreateTextInstance("y")
	tree.InsertBefore(p, y, z)

	got := []string{}
	for _, c := range tree.Get(p).Children {
		got = append(got, tree.Get(c).Value)
	}
	want := []string{"x", "y", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestNearestAncestor(t *testing.T) {
	tree := NewTree()
	a, _ := buildSample(tree)
	sub := tree.NearestAncestor(a, TypeSubagent)
	if sub == nil {
		t.Fatalf("expected to find nearest subagent ancestor")
	}
	if none := tree.NearestAncestor(a, TypeWorktree); none != nil {
		t.Fatalf("expected no worktree ancestor")
	}
}

func TestPathPerSiblingTypeIndexing(t *testing.T) {
	tree := NewTree()
	a, b := buildSample(tree)
	pathA := tree.Path(a)
	pathB := tree.Path(b)
	wantA := "ROOT/subagent[0]/claude[0]"
	wantB := "ROOT/subagent[0]/claude[1]"
	if pathA != wantA {
		t.Fatalf("path A = %q, want %q", pathA, wantA)
	}
	if pathB != wantB {
		t.Fatalf("path B = %q, want %q", pathB, wantB)
	}
}

func TestPathsIsBijection(t *testing.T) {
	tree := NewTree()
	buildSample(tree)
	paths := tree.Paths(0)
	seen := map[string]bool{}
	for p, id := range paths {
		if seen[p] {
			t.Fatalf("duplicate path %q", p)
		}
		seen[p] = true
		if tree.Path(id) != p {
			t.Fatalf("path round-trip mismatch for %q", p)
		}
	}
}

func TestContentHashStableAcrossIdenticalRenders(t *testing.T) {
	t1 := NewTree()
	buildSample(t1)
	t2 := NewTree()
	buildSample(t2)

	h1 := t1.ContentHash(0)
	h2 := t2.ContentHash(0)
	if h1 != h2 {
		t.Fatalf("expected stable hash across structurally identical renders: %s != %s", h1, h2)
	}
}

func TestContentHashChangesOnPropChange(t *testing.T) {
	tree := NewTree()
	a, _ := buildSample(tree)
	before := tree.ContentHash(a)
	tree.Get(a).SetProp("model", "claude-opus-5")
	after := tree.ContentHash(a)
	if before == after {
		t.Fatalf("expected hash to change when a non-underscored prop changes")
	}
}

func TestContentHashIgnoresUnderscoredProps(t *testing.T) {
	tree := NewTree()
	a, _ := buildSample(tree)
	before := tree.ContentHash(a)
	tree.Get(a).SetProp("_internal", "whatever")
	after := tree.ContentHash(a)
	if before != after {
		t.Fatalf("expected hash to ignore underscore-prefixed props")
	}
}

func TestContentHashCycleSafe(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	tree := NewTree()
	n := tree.CreateInstance(TypeClaude, []Prop{{Key: "cfg", Value: m}})
	tree.AppendChild(0, n)
	// Must not panic or infinite-loop.
	_ = tree.ContentHash(n)
}
