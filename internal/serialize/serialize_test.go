package serialize

import (
	"strings"
	"testing"

	"github.com/evmts/smithers/internal/node"
)

func TestSerializeSelfClosingWhenChildless(t *testing.T) {
	tree := node.NewTree()
	stop := tree.CreateInstance(node.TypeStop, []node.Prop{{Key: "reason", Value: "done"}})
	tree.AppendChild(0, stop)

	got := Serialize(tree, stop)
	want := `<stop reason="done" />`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSerializeEscapesInOrder(t *testing.T) {
	tree := node.NewTree()
	claude := tree.CreateInstance(node.TypeClaude, []node.Prop{{Key: "note", Value: `a & b < c > d " e ' f`}})
	tree.AppendChild(0, claude)

	got := Serialize(tree, claude)
	if !strings.Contains(got, `note="a &amp; b &lt; c &gt; d &quot; e &#39; f"`) {
		t.Fatalf("unexpected escaping: %s", got)
	}
}

func TestSerializeExcludesReservedProps(t *testing.T) {
	tree := node.NewTree()
	claude := tree.CreateInstance(node.TypeClaude, []node.Prop{
		{Key: "model", Value: "claude-sonnet-4-5"},
		{Key: "onFinished", Value: func() {}},
		{Key: "_mockMode", Value: true},
	})
	tree.AppendChild(0, claude)

	got := Serialize(tree, claude)
	if strings.Contains(got, "onFinished") || strings.Contains(got, "_mockMode") {
		t.Fatalf("expected reserved props excluded: %s", got)
	}
	if !strings.Contains(got, `model="claude-sonnet-4-5"`) {
		t.Fatalf("expected model prop present: %s", got)
	}
}

func TestSerializeRootJoinsChildrenNoWrappingTag(t *testing.T) {
	tree := node.NewTree()
	a := tree.CreateInstance(node.TypeStop, nil)
	b := tree.CreateInstance(node.TypeHuman, []node.Prop{{Key: "message", Value: "ok?"}})
	tree.AppendChild(0, a)
	tree.AppendChild(0, b)

	got := Serialize(tree, 0)
	if strings.HasPrefix(got, "<ROOT") || strings.Contains(got, "<root") {
		t.Fatalf("expected no wrapping tag for ROOT: %s", got)
	}
	if !strings.Contains(got, "<stop") || !strings.Contains(got, "<human") {
		t.Fatalf("expected both children serialized: %s", got)
	}
}

func TestSerializePreservesInterleavedWhitespace(t *testing.T) {
	tree := node.NewTree()
	claude := tree.CreateInstance(node.TypeClaude, nil)
	tree.AppendChild(0, claude)

	t1 := tree.CreateTextInstance("  Review the diff.  ")
	persona := tree.CreateInstance(node.TypePersona, []node.Prop{{Key: "role", Value: "reviewer"}})
	tree.AppendChild(claude, t1)
	tree.AppendChild(claude, persona)

	got := Serialize(tree, claude)
	if !strings.Contains(got, "  Review the diff.  ") {
		t.Fatalf("expected TEXT whitespace preserved verbatim: %q", got)
	}
}

func TestWithPathsEmitsPathFirst(t *testing.T) {
	tree := node.NewTree()
	claude := tree.CreateInstance(node.TypeClaude, []node.Prop{{Key: "model", Value: "claude-sonnet-4-5"}})
	tree.AppendChild(0, claude)

	got := WithPaths(tree, claude)
	if !strings.HasPrefix(got, `<claude path="ROOT/claude[0]"`) {
		t.Fatalf("expected path attribute emitted first: %s", got)
	}
}
