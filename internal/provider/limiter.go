package provider

import (
	"fmt"
	"sync"
	"time"
)

// Config is what a claude-provider node's props resolve to (spec §4.9):
// rate limits shared across the whole subtree plus a per-model usage
// budget. A zero value of any field means "unlimited" for that dimension.
type Config struct {
	RequestsPerMinute int64
	TokensPerMinute   int64

	BudgetTokens  int64
	BudgetCostUSD float64
	BudgetWindow  TimeWindow // defaults to WindowDay if a budget is set but window isn't

	QueueTimeoutMs int64
}

func (c Config) budgetWindow() TimeWindow {
	if c.BudgetWindow == "" {
		return WindowDay
	}
	return c.BudgetWindow
}

// Limiter is the live rate/budget enforcer for one claude-provider node,
// grounded on hector's pkg/ratelimit.DefaultRateLimiter: a Store-backed
// Check/Record pair, generalized from hector's single scope+identifier
// pairing to Smithers's two-tier model (subtree-wide rate limits,
// per-model budgets). cfg is swapped under mu rather than the Limiter
// being discarded and recreated, satisfying spec §4.9's "update in place"
// requirement when a claude-provider node re-renders with new limits.
type Limiter struct {
	providerPath string
	store        Store

	mu  sync.RWMutex
	cfg Config
}

// NewLimiter builds a Limiter bound to one claude-provider node's path.
func NewLimiter(providerPath string, store Store, cfg Config) *Limiter {
	return &Limiter{providerPath: providerPath, store: store, cfg: cfg}
}

// Reconfigure replaces the live limits in place (spec §4.9: "the live
// limiter must update in place (not be recreated)"). An empty Config
// reverts every dimension to unlimited without leaking any window state —
// the Store's fixed-window records simply stop being consulted.
func (l *Limiter) Reconfigure(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
}

func (l *Limiter) config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// rateUsage reports current requests/min and tokens/min usage, both
// global to the provider subtree (identifier ""), alongside whether
// admitting one more request (and reserving its request slot) is allowed.
func (l *Limiter) checkAndReserveRate() (allowed bool, reason string, retryAfter time.Duration) {
	cfg := l.config()

	if cfg.RequestsPerMinute > 0 {
		current, windowEnd := l.store.GetUsage(l.providerPath, "", LimitTypeRequests, WindowMinute)
		if current >= cfg.RequestsPerMinute {
			return false, fmt.Sprintf("requests/min limit exceeded (%d/%d)", current, cfg.RequestsPerMinute), time.Until(windowEnd)
		}
	}
	if cfg.TokensPerMinute > 0 {
		current, windowEnd := l.store.GetUsage(l.providerPath, "", LimitTypeTokens, WindowMinute)
		if current >= cfg.TokensPerMinute {
			return false, fmt.Sprintf("tokens/min limit exceeded (%d/%d)", current, cfg.TokensPerMinute), time.Until(windowEnd)
		}
	}

	// Reserve the request slot now; token usage is only known after the
	// call completes and is recorded by RecordUsage.
	if cfg.RequestsPerMinute > 0 {
		l.store.IncrementUsage(l.providerPath, "", LimitTypeRequests, WindowMinute, 1)
	}
	return true, "", 0
}

// checkBudget reports whether model's aggregate budget (tokens and/or
// cost, over cfg.budgetWindow()) is already exceeded, without recording
// anything — budgets are only debited after a call via RecordUsage.
func (l *Limiter) checkBudget(model string) (allowed bool, reason string) {
	cfg := l.config()
	window := cfg.budgetWindow()

	if cfg.BudgetTokens > 0 {
		current, _ := l.store.GetUsage(l.providerPath, model, LimitTypeTokens, window)
		if current >= cfg.BudgetTokens {
			return false, fmt.Sprintf("token budget exceeded for %s (%d/%d per %s)", model, current, cfg.BudgetTokens, window)
		}
	}
	if cfg.BudgetCostUSD > 0 {
		current, _ := l.store.GetUsage(l.providerPath, model, LimitTypeCost, window)
		if current >= costMicros(cfg.BudgetCostUSD) {
			return false, fmt.Sprintf("cost budget exceeded for %s ($%.4f/$%.2f per %s)", model, microsToUSD(current), cfg.BudgetCostUSD, window)
		}
	}
	return true, ""
}

// recordUsage debits tokens/min (global) and the per-model budget after a
// call completes, returning whether this debit just pushed the model's
// budget over its limit (spec §4.9 "onBudgetExceeded fires only on actual
// limit types").
func (l *Limiter) recordUsage(model string, inputTokens, outputTokens int, costUSD float64) (budgetExceeded bool, reason string) {
	cfg := l.config()
	totalTokens := int64(inputTokens + outputTokens)

	if totalTokens > 0 {
		l.store.IncrementUsage(l.providerPath, "", LimitTypeTokens, WindowMinute, totalTokens)
	}

	window := cfg.budgetWindow()
	if totalTokens > 0 {
		newAmount, _ := l.store.IncrementUsage(l.providerPath, model, LimitTypeTokens, window, totalTokens)
		if cfg.BudgetTokens > 0 && newAmount > cfg.BudgetTokens {
			return true, fmt.Sprintf("token budget exceeded for %s (%d/%d per %s)", model, newAmount, cfg.BudgetTokens, window)
		}
	}
	if costUSD > 0 {
		newAmount, _ := l.store.IncrementUsage(l.providerPath, model, LimitTypeCost, window, costMicros(costUSD))
		if cfg.BudgetCostUSD > 0 && newAmount > costMicros(cfg.BudgetCostUSD) {
			return true, fmt.Sprintf("cost budget exceeded for %s ($%.4f/$%.2f per %s)", model, microsToUSD(newAmount), cfg.BudgetCostUSD, window)
		}
	}
	return false, ""
}
