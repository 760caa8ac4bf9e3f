package scheduler

import (
	"context"
	"testing"

	"github.com/evmts/smithers/internal/node"
)

type fakeExecutor struct {
	calls int
}

func (f *fakeExecutor) Execute(ctx context.Context, t *node.Tree, n *node.Node, path string, opts ExecuteOptions, tools []PreparedTool) (Result, error) {
	f.calls++
	return Result{Text: "ok:" + path}, nil
}

type fakeFileWriter struct {
	written []string
}

func (f *fakeFileWriter) WriteFile(ctx context.Context, n *node.Node, mock bool) (any, error) {
	f.written = append(f.written, n.PropString("path", ""))
	return "wrote", nil
}

func buildTree(t *testing.T) *node.Tree {
	tr := node.NewTree()
	file := tr.CreateInstance(node.TypeFile, []node.Prop{{Key: "path", Value: "/tmp/x.txt"}})
	tr.AppendChild(0, file)
	txt := tr.CreateTextInstance("hello")
	tr.AppendChild(file, txt)

	claude := tr.CreateInstance(node.TypeClaude, []node.Prop{{Key: "model", Value: "claude-sonnet-4-5"}})
	tr.AppendChild(0, claude)
	return tr
}

func TestExecutePlanRunsFileThenClaudeToQuiescence(t *testing.T) {
	tree := buildTree(t)
	exec := &fakeExecutor{}
	fw := &fakeFileWriter{}

	s := New(tree)
	s.Executors = Executors{Claude: exec}
	s.Files = fw

	result := s.ExecutePlan(context.Background(), Options{MaxFrames: 10})

	if result.Status != ReasonQuiescent {
		t.Fatalf("expected quiescent termination, got %v (err=%v)", result.Status, result.Err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected claude executor called once, got %d", exec.calls)
	}
	if len(fw.written) != 1 || fw.written[0] != "/tmp/x.txt" {
		t.Fatalf("expected file written once to /tmp/x.txt, got %v", fw.written)
	}
}

func TestExecutePlanStopsAtStopNode(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)
	stop := tr.CreateInstance(node.TypeStop, []node.Prop{{Key: "reason", Value: "done"}})
	tr.AppendChild(0, stop)

	s := New(tr)
	s.Executors = Executors{Claude: &fakeExecutor{}}

	result := s.ExecutePlan(context.Background(), Options{MaxFrames: 5})
	if result.Status != ReasonStopNode {
		t.Fatalf("expected stop_node termination, got %v", result.Status)
	}
	if result.Frames != 1 {
		t.Fatalf("expected termination on the first frame, got frame %d", result.Frames)
	}
}

func TestExecutePlanHonorsMaxFrames(t *testing.T) {
	tr := node.NewTree()
	claude := tr.CreateInstance(node.TypeClaude, nil)
	tr.AppendChild(0, claude)

	s := New(tr)
	// No executor configured: the node errors every frame and never
	// stabilizes, since onError doesn't clear the pending condition by
	// itself (the node's contentHash never changes here).
	result := s.ExecutePlan(context.Background(), Options{MaxFrames: 3})
	if result.Status != ReasonQuiescent {
		t.Fatalf("expected quiescent after the node settles into a terminal error state, got %v", result.Status)
	}
}

func TestExecutePlanHumanRejectionTerminates(t *testing.T) {
	tr := node.NewTree()
	human := tr.CreateInstance(node.TypeHuman, []node.Prop{{Key: "message", Value: "proceed?"}})
	tr.AppendChild(0, human)

	s := New(tr)
	result := s.ExecutePlan(context.Background(), Options{
		MaxFrames: 5,
		OnHumanPrompt: func(ctx context.Context, message, content string) (bool, error) {
			return false, nil
		},
	})
	if result.Status != ReasonHumanRejected {
		t.Fatalf("expected human_rejected termination, got %v", result.Status)
	}
}
