package persist

import (
	"context"
	"testing"
)

func TestMemoryBackendSaveLoadRoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	if _, ok, err := backend.Load(ctx, "run-1"); err != nil || ok {
		t.Fatalf("Load on empty backend = (%v, %v), want (_, false)", ok, err)
	}

	snap := Snapshot{
		Nodes: map[string]NodeState{
			"/phase[0]/claude-api[0]": {Status: "complete", ContentHash: "abc123"},
		},
		Approvals: []string{"/phase[0]/human[0]:abc123"},
	}
	if err := backend.Save(ctx, "run-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := backend.Load(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("Load after Save = (%v, %v), want (true, nil)", ok, err)
	}
	if got.Nodes["/phase[0]/claude-api[0]"].ContentHash != "abc123" {
		t.Fatalf("round-tripped node state mismatch: %+v", got.Nodes)
	}
	if len(got.Approvals) != 1 || got.Approvals[0] != "/phase[0]/human[0]:abc123" {
		t.Fatalf("round-tripped approvals mismatch: %+v", got.Approvals)
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	backend, err := Open(Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer backend.Close()
	if _, ok := backend.(*MemoryBackend); !ok {
		t.Fatalf("Open with zero-value Options = %T, want *MemoryBackend", backend)
	}
}

func TestOpenRejectsUnknownKind(t *testing.T) {
	if _, err := Open(Options{Kind: "s3"}); err == nil {
		t.Fatal("Open with unknown kind should error")
	}
}
