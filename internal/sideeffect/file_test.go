package sideeffect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evmts/smithers/internal/node"
)

func TestFileWriterWritesAndBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(FileWriterConfig{WorkingDirectory: dir})

	tr := node.NewTree()
	id := tr.CreateInstance(node.TypeFile, []node.Prop{
		{Key: "path", Value: "out.txt"},
		{Key: "content", Value: "hello"},
	})

	if _, err := w.WriteFile(context.Background(), tr.Get(id), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	id2 := tr.CreateInstance(node.TypeFile, []node.Prop{
		{Key: "path", Value: "out.txt"},
		{Key: "content", Value: "world"},
	})
	if _, err := w.WriteFile(context.Background(), tr.Get(id2), false); err != nil {
		t.Fatalf("unexpected error on overwrite: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt.bak")); err != nil {
		t.Fatalf("expected backup file to exist: %v", err)
	}
}

func TestFileWriterRejectsTraversalAndAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(FileWriterConfig{WorkingDirectory: dir})
	tr := node.NewTree()

	abs := tr.CreateInstance(node.TypeFile, []node.Prop{{Key: "path", Value: "/etc/passwd"}, {Key: "content", Value: "x"}})
	if _, err := w.WriteFile(context.Background(), tr.Get(abs), false); err == nil {
		t.Fatalf("expected error for absolute path")
	}

	trav := tr.CreateInstance(node.TypeFile, []node.Prop{{Key: "path", Value: "../escape.txt"}, {Key: "content", Value: "x"}})
	if _, err := w.WriteFile(context.Background(), tr.Get(trav), false); err == nil {
		t.Fatalf("expected error for traversal path")
	}
}

func TestFileWriterMockModeSkipsDisk(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(FileWriterConfig{WorkingDirectory: dir})
	tr := node.NewTree()
	id := tr.CreateInstance(node.TypeFile, []node.Prop{{Key: "path", Value: "mock.txt"}, {Key: "content", Value: "x"}})

	if _, err := w.WriteFile(context.Background(), tr.Get(id), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mock.txt")); err == nil {
		t.Fatalf("expected no file to be written in mock mode")
	}
}
