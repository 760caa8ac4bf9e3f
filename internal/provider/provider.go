package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

// pollInterval is how often a blocked Acquire re-checks the limiter while
// waiting out queueTimeoutMs, matching spec §5's "pause busy-wait loops
// (~100 ms sleeps)" cadence for cooperative suspension points.
const pollInterval = 100 * time.Millisecond

// Events receives the three provider event types spec §4.9 names
// ("Provider events (onRateLimited, onUsageUpdate, onBudgetExceeded) fire
// only on actual limit types"). A nil Events is fine; Provider treats it
// as "nobody is listening."
type Events interface {
	OnRateLimited(providerPath, reason string)
	OnUsageUpdate(providerPath, model string, usage scheduler.Usage)
	OnBudgetExceeded(providerPath, model, reason string)
	// OnAcquired fires once a call is actually admitted, reporting how long
	// (if at all) it spent queued behind a rate limit.
	OnAcquired(providerPath, model string, queueWait time.Duration)
}

// Provider implements scheduler.RateBudgetProvider, holding one Limiter per
// claude-provider node path (keyed by the path, not the node pointer, so a
// node that re-renders in place is still recognized as the same limiter).
// Grounded on hector's pkg/ratelimit.NewRateLimiter's config+store pairing,
// generalized here to own a whole registry of limiters rather than one.
type Provider struct {
	store Store
	sink  Events

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// New builds a Provider backed by a fresh MemoryStore.
func New(sink Events) *Provider {
	return &Provider{store: NewMemoryStore(), limiters: make(map[string]*Limiter), sink: sink}
}

var _ scheduler.RateBudgetProvider = (*Provider)(nil)

func (p *Provider) limiterFor(providerPath string, providerNode *node.Node) *Limiter {
	cfg := ConfigFromNode(providerNode)

	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[providerPath]
	if !ok {
		l = NewLimiter(providerPath, p.store, cfg)
		p.limiters[providerPath] = l
		return l
	}
	l.Reconfigure(cfg)
	return l
}

// Acquire implements scheduler.RateBudgetProvider (spec §4.9). It first
// checks the model's budget (token/cost, already-recorded usage only — no
// call has happened yet so nothing new is debited), then tries to reserve
// a request slot against the subtree-wide rate limits, retrying every
// pollInterval until cfg.QueueTimeoutMs elapses.
func (p *Provider) Acquire(ctx context.Context, providerPath string, providerNode *node.Node, model string) error {
	if providerNode == nil {
		return nil
	}
	l := p.limiterFor(providerPath, providerNode)

	if allowed, reason := l.checkBudget(model); !allowed {
		p.notifyBudgetExceeded(providerPath, model, reason)
		return &BudgetExceededError{ProviderPath: providerPath, Model: model, Reason: reason}
	}

	start := time.Now()
	deadline := start.Add(time.Duration(l.config().QueueTimeoutMs) * time.Millisecond)
	for {
		allowed, reason, retryAfter := l.checkAndReserveRate()
		if allowed {
			p.notifyAcquired(providerPath, model, time.Since(start))
			return nil
		}

		p.notifyRateLimited(providerPath, reason)

		if l.config().QueueTimeoutMs <= 0 || time.Now().After(deadline) {
			return &QueueFullError{ProviderPath: providerPath, Reason: reason, RetryAfter: retryAfter}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release implements scheduler.RateBudgetProvider, debiting the call's
// actual usage against the subtree's tokens/min window and the model's
// budget, firing onUsageUpdate and (if the debit pushed a budget over its
// limit) onBudgetExceeded.
func (p *Provider) Release(ctx context.Context, providerPath string, providerNode *node.Node, model string, usage scheduler.Usage) {
	if providerNode == nil {
		return
	}
	l := p.limiterFor(providerPath, providerNode)

	p.notifyUsageUpdate(providerPath, model, usage)

	exceeded, reason := l.recordUsage(model, usage.InputTokens, usage.OutputTokens, usage.CostUSD)
	if exceeded {
		p.notifyBudgetExceeded(providerPath, model, reason)
	}
}

// Forget drops a claude-provider node's limiter and usage windows,
// called when the node unmounts so repeated short-lived provider subtrees
// don't accumulate unbounded map entries (spec §4.9 "without leaking
// intervals", adapted from timer handles to map entries for a pull-based
// limiter).
func (p *Provider) Forget(providerPath string) {
	p.mu.Lock()
	delete(p.limiters, providerPath)
	p.mu.Unlock()
	p.store.Reset(providerPath)
}

func (p *Provider) notifyAcquired(providerPath, model string, queueWait time.Duration) {
	if p.sink != nil {
		p.sink.OnAcquired(providerPath, model, queueWait)
	}
}

func (p *Provider) notifyRateLimited(providerPath, reason string) {
	if p.sink != nil {
		p.sink.OnRateLimited(providerPath, reason)
	}
}

func (p *Provider) notifyUsageUpdate(providerPath, model string, usage scheduler.Usage) {
	if p.sink != nil {
		p.sink.OnUsageUpdate(providerPath, model, usage)
	}
}

func (p *Provider) notifyBudgetExceeded(providerPath, model, reason string) {
	if p.sink != nil {
		p.sink.OnBudgetExceeded(providerPath, model, reason)
	}
}

// QueueFullError is returned when Acquire's queueTimeoutMs elapses without
// the subtree's rate limits admitting the call (spec §4.9 "raises a
// queue-full error").
type QueueFullError struct {
	ProviderPath string
	Reason       string
	RetryAfter   time.Duration
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("provider %s: queue full: %s (retry after %s)", e.ProviderPath, e.Reason, e.RetryAfter)
}

// BudgetExceededError is returned when a model's token or cost budget is
// already exhausted before a call is even attempted.
type BudgetExceededError struct {
	ProviderPath string
	Model        string
	Reason       string
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.ProviderPath, e.Reason)
}
