package executor

import (
	"context"
	"testing"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

func TestClaudeCLIMockModeSkipsSubprocess(t *testing.T) {
	tr := node.NewTree()
	cli := tr.CreateInstance(node.TypeClaudeCLI, []node.Prop{{Key: "model", Value: "claude-sonnet-4-5"}})
	tr.AppendChild(0, cli)
	tr.AppendChild(cli, tr.CreateTextInstance("hi"))

	e := &ClaudeCLI{}
	result, err := e.Execute(context.Background(), tr, tr.Get(cli), "ROOT/claude-cli[0]", scheduler.ExecuteOptions{MockMode: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "mock:ROOT/claude-cli[0]" {
		t.Fatalf("unexpected mock result: %q", result.Text)
	}
}

func TestToCSVHandlesStringAndSliceForms(t *testing.T) {
	if got := toCSV("Read,Write"); got != "Read,Write" {
		t.Fatalf("got %q", got)
	}
	if got := toCSV([]string{"Read", "Write"}); got != "Read,Write" {
		t.Fatalf("got %q", got)
	}
	if got := toCSV([]any{"Read", "Write"}); got != "Read,Write" {
		t.Fatalf("got %q", got)
	}
}
