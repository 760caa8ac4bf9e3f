package provider

import "testing"

func TestRecordUsageReportsBudgetExceededOnlyOnceThreshold(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter("ROOT/provider[0]", store, Config{BudgetTokens: 100})

	exceeded, _ := l.recordUsage("m", 50, 0, 0)
	if exceeded {
		t.Fatalf("50/100 should not exceed budget")
	}
	exceeded, reason := l.recordUsage("m", 60, 0, 0)
	if !exceeded {
		t.Fatalf("110/100 should exceed budget")
	}
	if reason == "" {
		t.Fatalf("expected a non-empty reason")
	}
}

func TestReconfigureToEmptyConfigRevertsToUnlimited(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter("ROOT/provider[0]", store, Config{RequestsPerMinute: 1})

	allowed, _, _ := l.checkAndReserveRate()
	if !allowed {
		t.Fatalf("first reservation should succeed")
	}
	allowed, _, _ = l.checkAndReserveRate()
	if allowed {
		t.Fatalf("second reservation should be denied at limit 1")
	}

	l.Reconfigure(Config{})
	allowed, _, _ = l.checkAndReserveRate()
	if !allowed {
		t.Fatalf("reverting to an empty config should lift the requests/min limit")
	}
}

func TestCheckBudgetIgnoresZeroLimits(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter("ROOT/provider[0]", store, Config{})
	allowed, _ := l.checkBudget("m")
	if !allowed {
		t.Fatalf("a Config with no budget fields set should never deny")
	}
}
