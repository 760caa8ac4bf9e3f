package dsl

import (
	"testing"

	"github.com/evmts/smithers/internal/node"
)

func TestRenderMaterializesClaudeProviderSubtree(t *testing.T) {
	root := ClaudeProvider([]Attr{A("requestsPerMinute", 10)},
		Claude([]Attr{A("model", "claude-sonnet-4-5-20250929")},
			Persona("You are a careful reviewer."),
			Task("Summarize the diff."),
		),
	)

	tree := Render(root)

	providerID := node.ID(1)
	provider := tree.Get(providerID)
	if provider == nil || provider.Type != node.TypeClaudeProvider {
		t.Fatalf("expected node 1 to be claude-provider, got %+v", provider)
	}
	if got := provider.PropInt("requestsPerMinute", -1); got != 10 {
		t.Fatalf("expected requestsPerMinute=10, got %d", got)
	}
	if len(provider.Children) != 1 {
		t.Fatalf("expected provider to have one claude child, got %d", len(provider.Children))
	}

	claude := tree.Get(provider.Children[0])
	if claude.Type != node.TypeClaude {
		t.Fatalf("expected claude child, got %s", claude.Type)
	}
	if len(claude.Children) != 2 {
		t.Fatalf("expected persona+task children, got %d", len(claude.Children))
	}
}

func TestWithReplacesExistingAttrInPlace(t *testing.T) {
	e := Claude([]Attr{A("model", "old")})
	e = With(e, "model", "new")

	if len(e.Props) != 1 {
		t.Fatalf("expected With to replace in place, not append; got %d props", len(e.Props))
	}
	if e.Props[0].Value != "new" {
		t.Fatalf("expected replaced value %q, got %v", "new", e.Props[0].Value)
	}
}

func TestTextBuildsTextLeaf(t *testing.T) {
	root := Phase(nil, Text("hello"))
	tree := Render(root)

	phase := tree.Get(node.ID(1))
	if len(phase.Children) != 1 {
		t.Fatalf("expected one text child")
	}
	txt := tree.Get(phase.Children[0])
	if txt.Type != node.TypeText || txt.Value != "hello" {
		t.Fatalf("expected TEXT node with value %q, got %+v", "hello", txt)
	}
}
