package loader

import (
	"testing"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/serialize"
)

func TestMaterializePreservesPropOrder(t *testing.T) {
	el := Element{
		Type: "claude",
		Props: []ElementProp{
			{Key: "model", Value: "claude-sonnet-4-5"},
			{Key: "maxTurns", Value: 3},
		},
		Children: []Element{{Text: "Say hello."}},
	}

	tree := Materialize(el)
	root := tree.Get(0)
	if len(root.Children) != 1 {
		t.Fatalf("expected one root child")
	}
	claude := tree.Get(root.Children[0])
	if claude.Type != node.TypeClaude {
		t.Fatalf("expected claude type, got %s", claude.Type)
	}
	got := serialize.Serialize(tree, claude.ID)
	if got != `<claude model="claude-sonnet-4-5" maxTurns="3">
  Say hello.
</claude>` {
		t.Fatalf("unexpected serialization or prop order: %s", got)
	}
}
