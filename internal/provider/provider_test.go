package provider

import (
	"context"
	"testing"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

func providerNode(props ...node.Prop) *node.Node {
	return &node.Node{Type: node.TypeClaudeProvider, Props: props}
}

func TestAcquireDeniesOverRequestRate(t *testing.T) {
	p := New(nil)
	n := providerNode(node.Prop{Key: "requestsPerMinute", Value: 1})

	if err := p.Acquire(context.Background(), "ROOT/provider[0]", n, "claude-sonnet"); err != nil {
		t.Fatalf("first acquire should be admitted: %v", err)
	}
	if err := p.Acquire(context.Background(), "ROOT/provider[0]", n, "claude-sonnet"); err == nil {
		t.Fatalf("second acquire should be denied by requests/min=1")
	}
}

func TestAcquireDeniesWhenBudgetAlreadyExceeded(t *testing.T) {
	p := New(nil)
	n := providerNode(node.Prop{Key: "budgetTokens", Value: 100})

	p.Release(context.Background(), "ROOT/provider[0]", n, "claude-sonnet", scheduler.Usage{InputTokens: 80, OutputTokens: 30})

	err := p.Acquire(context.Background(), "ROOT/provider[0]", n, "claude-sonnet")
	if err == nil {
		t.Fatalf("expected budget-exceeded error after 110/100 tokens recorded")
	}
	var budgetErr *BudgetExceededError
	if !asBudgetExceeded(err, &budgetErr) {
		t.Fatalf("expected *BudgetExceededError, got %T: %v", err, err)
	}
}

func TestAcquireBudgetIsPerModel(t *testing.T) {
	p := New(nil)
	n := providerNode(node.Prop{Key: "budgetTokens", Value: 100})

	p.Release(context.Background(), "ROOT/provider[0]", n, "opus", scheduler.Usage{InputTokens: 200})

	if err := p.Acquire(context.Background(), "ROOT/provider[0]", n, "haiku"); err != nil {
		t.Fatalf("haiku's own budget should be untouched by opus usage: %v", err)
	}
}

func TestReconfigureUpdatesLimiterInPlace(t *testing.T) {
	p := New(nil)
	strict := providerNode(node.Prop{Key: "requestsPerMinute", Value: 1})
	if err := p.Acquire(context.Background(), "ROOT/provider[0]", strict, "m"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := p.Acquire(context.Background(), "ROOT/provider[0]", strict, "m"); err == nil {
		t.Fatalf("expected denial at limit 1")
	}

	loose := providerNode(node.Prop{Key: "requestsPerMinute", Value: 100})
	if err := p.Acquire(context.Background(), "ROOT/provider[0]", loose, "m"); err != nil {
		t.Fatalf("re-render with a higher limit should admit immediately: %v", err)
	}
}

func TestForgetClearsLimiterAndUsage(t *testing.T) {
	p := New(nil)
	n := providerNode(node.Prop{Key: "budgetTokens", Value: 10})
	p.Release(context.Background(), "ROOT/provider[0]", n, "m", scheduler.Usage{InputTokens: 20})

	p.Forget("ROOT/provider[0]")

	if err := p.Acquire(context.Background(), "ROOT/provider[0]", n, "m"); err != nil {
		t.Fatalf("expected budget reset after Forget, got %v", err)
	}
}

func asBudgetExceeded(err error, target **BudgetExceededError) bool {
	be, ok := err.(*BudgetExceededError)
	if !ok {
		return false
	}
	*target = be
	return true
}
