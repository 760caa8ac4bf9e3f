package toolprep

import (
	"context"
	"testing"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

func TestMergeInlineOverridesRemoteByName(t *testing.T) {
	remote := []scheduler.PreparedTool{
		{Name: "search"},
		{Name: "fetch"},
	}
	inline := []scheduler.PreparedTool{
		{Name: "search", Description: "inline wins"},
	}

	merged := mergeInline(remote, inline)
	if len(merged) != 2 {
		t.Fatalf("expected 2 tools after override, got %d", len(merged))
	}
	var found bool
	for _, tool := range merged {
		if tool.Name == "search" {
			found = true
			if tool.Description != "inline wins" {
				t.Fatalf("expected inline tool to win, got %+v", tool)
			}
		}
	}
	if !found {
		t.Fatalf("expected search tool to survive merge")
	}
}

func TestParseInlineToolsConvertsLegacyParameters(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaudeAPI, []node.Prop{
		{Key: "tools", Value: []any{
			map[string]any{
				"name": "grep",
				"parameters": map[string]any{
					"properties": map[string]any{"pattern": map[string]any{"type": "string"}},
					"required":   []any{"pattern"},
				},
			},
		}},
	})

	tools := parseInlineTools(tr.Get(claude))
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].InputSchema["type"] != "object" {
		t.Fatalf("expected converted schema to be type object, got %+v", tools[0].InputSchema)
	}
}

func TestHasPlanChildrenDetectsElementDescendant(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	tr.AppendChild(claude, tr.CreateTextInstance("just text"))
	if hasPlanChildren(tr, tr.Get(claude)) {
		t.Fatalf("expected no plan children for text-only node")
	}

	step := tr.CreateInstance(node.TypeStep, nil)
	tr.AppendChild(claude, step)
	if !hasPlanChildren(tr, tr.Get(claude)) {
		t.Fatalf("expected plan children once a non-text child is present")
	}
}

func TestPrepareInjectsRenderNodeWhenPlanPresentAndFuncSet(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	tr.AppendChild(claude, tr.CreateInstance(node.TypeStep, nil))

	p := NewPreparer()
	p.RenderNode = func(ctx context.Context, path string) (any, string, error) {
		return "ok", "step", nil
	}

	tools, err := p.Prepare(context.Background(), tr, tr.Get(claude))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var renderNode *scheduler.PreparedTool
	for i := range tools {
		if tools[i].Name == "render_node" {
			renderNode = &tools[i]
		}
	}
	if renderNode == nil {
		t.Fatalf("expected render_node tool to be injected, got %+v", tools)
	}
	out, err := renderNode.Invoke(context.Background(), map[string]any{"node_path": "ROOT/claude[0]/step[0]"})
	if err != nil {
		t.Fatalf("unexpected invoke error: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty render_node result")
	}
}

func TestPrepareSkipsRenderNodeWithoutPlanChildren(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	tr.AppendChild(claude, tr.CreateTextInstance("say hi"))

	p := NewPreparer()
	p.RenderNode = func(ctx context.Context, path string) (any, string, error) {
		return nil, "", nil
	}

	tools, err := p.Prepare(context.Background(), tr, tr.Get(claude))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tool := range tools {
		if tool.Name == "render_node" {
			t.Fatalf("expected render_node to be absent without plan children")
		}
	}
}
