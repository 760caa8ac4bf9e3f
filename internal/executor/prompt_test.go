package executor

import (
	"strings"
	"testing"

	"github.com/evmts/smithers/internal/node"
)

func TestBuildPromptFlattensTextWithNoPlanChildren(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	persona := tr.CreateInstance(node.TypePersona, []node.Prop{{Key: "role", Value: "reviewer"}})
	tr.AppendChild(claude, persona)
	tr.AppendChild(persona, tr.CreateTextInstance("Be terse."))
	tr.AppendChild(claude, tr.CreateTextInstance("Review this diff."))

	p := BuildPrompt(tr, tr.Get(claude))
	if !strings.Contains(p.System, "reviewer: Be terse.") {
		t.Fatalf("expected persona folded into system prompt, got %q", p.System)
	}
	if p.PlanXML != "" {
		t.Fatalf("expected no plan XML, got %q", p.PlanXML)
	}
}

func TestBuildPromptSplitsPlanChildren(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	tr.AppendChild(claude, tr.CreateTextInstance("Execute the plan below."))
	step := tr.CreateInstance(node.TypeStep, []node.Prop{{Key: "name", Value: "build"}})
	tr.AppendChild(claude, step)

	p := BuildPrompt(tr, tr.Get(claude))
	if p.Body != "Execute the plan below." {
		t.Fatalf("unexpected body: %q", p.Body)
	}
	if !strings.Contains(p.PlanXML, `path="ROOT/claude[0]/step[0]"`) {
		t.Fatalf("expected plan XML to carry a path attribute: %s", p.PlanXML)
	}
	if !strings.Contains(p.System, "render_node") {
		t.Fatalf("expected system prompt to reference render_node: %s", p.System)
	}
}
