package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestYAMLLoaderPreservesPropOrderAndNesting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	content := `
type: claude-provider
props:
  - requestsPerMinute: 10
  - tokensPerMinute: 5000
children:
  - type: claude
    props:
      - model: claude-sonnet-4-5-20250929
    children:
      - type: persona
        text: You are a careful reviewer.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	el, err := YAMLLoader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if el.Type != "claude-provider" {
		t.Fatalf("expected root type claude-provider, got %q", el.Type)
	}
	if len(el.Props) != 2 || el.Props[0].Key != "requestsPerMinute" || el.Props[1].Key != "tokensPerMinute" {
		t.Fatalf("expected ordered props, got %+v", el.Props)
	}
	if v, ok := el.Props[0].Value.(int); !ok || v != 10 {
		t.Fatalf("expected requestsPerMinute=10 as int, got %#v", el.Props[0].Value)
	}
	if len(el.Children) != 1 || el.Children[0].Type != "claude" {
		t.Fatalf("expected one claude child, got %+v", el.Children)
	}
	persona := el.Children[0].Children[0]
	if persona.Type != "persona" || persona.Text != "You are a careful reviewer." {
		t.Fatalf("expected persona text child, got %+v", persona)
	}
}

func TestYAMLLoaderRejectsMissingType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte("props: []\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := YAMLLoader{}.Load(context.Background(), path)
	if err == nil {
		t.Fatalf("expected an error for a root element with no type")
	}
	lerr, ok := err.(*Error)
	if !ok || lerr.Kind != KindInvalidElement {
		t.Fatalf("expected InvalidElementError, got %#v", err)
	}
}
