package persist

import (
	"errors"
	"testing"

	"github.com/evmts/smithers/internal/node"
)

func TestExecutionStateConversionRoundTrip(t *testing.T) {
	byPath := map[string]*node.ExecutionState{
		"/phase[0]/claude-api[0]": {
			Status:      node.StatusComplete,
			Result:      "ok",
			ContentHash: "abc123",
		},
		"/phase[0]/claude-api[1]": {
			Status:      node.StatusError,
			Err:         errors.New("rate limited"),
			ContentHash: "def456",
		},
	}
	approvals := []string{"/phase[0]/human[0]:abc123"}

	snap := FromExecutionStates(byPath, approvals)
	gotByPath, gotApprovals := ToExecutionStates(snap)

	if len(gotByPath) != 2 {
		t.Fatalf("got %d node states, want 2", len(gotByPath))
	}
	ok := gotByPath["/phase[0]/claude-api[0]"]
	if ok.Status != node.StatusComplete || ok.ContentHash != "abc123" || ok.Err != nil {
		t.Fatalf("round-tripped ok state = %+v", ok)
	}
	errState := gotByPath["/phase[0]/claude-api[1]"]
	if errState.Status != node.StatusError || errState.Err == nil || errState.Err.Error() != "rate limited" {
		t.Fatalf("round-tripped error state = %+v", errState)
	}
	if len(gotApprovals) != 1 || gotApprovals[0] != approvals[0] {
		t.Fatalf("round-tripped approvals = %+v", gotApprovals)
	}
}
