package observability

import (
	"time"

	"github.com/evmts/smithers/internal/provider"
	"github.com/evmts/smithers/internal/scheduler"
)

// ProviderEvents adapts provider.Events (component 11's typed callback
// seam) onto the scheduler.EventSink stream Sink already consumes, so a
// single Sink instance drives both the node/frame event stream and the
// rate/budget provider's own events through the same OTel/Prometheus
// pipeline (spec §4.9's events "fire only on actual limit types", routed
// here as provider:denied and provider:usage).
type ProviderEvents struct {
	sink scheduler.EventSink
}

// NewProviderEvents wraps sink (typically the same *Sink passed to the
// scheduler as its EventSink) as a provider.Events.
func NewProviderEvents(sink scheduler.EventSink) *ProviderEvents {
	return &ProviderEvents{sink: sink}
}

var _ provider.Events = (*ProviderEvents)(nil)

func (p *ProviderEvents) OnRateLimited(providerPath, reason string) {
	p.emit("provider:denied", providerPath, map[string]any{"reason": "rate", "detail": reason})
}

func (p *ProviderEvents) OnUsageUpdate(providerPath, model string, usage scheduler.Usage) {
	p.emit("provider:usage", providerPath, map[string]any{
		"inputTokens":  usage.InputTokens,
		"outputTokens": usage.OutputTokens,
		"costUSD":      usage.CostUSD,
	})
}

func (p *ProviderEvents) OnBudgetExceeded(providerPath, model, reason string) {
	p.emit("provider:denied", providerPath, map[string]any{"reason": "budget", "detail": reason})
}

func (p *ProviderEvents) OnAcquired(providerPath, model string, queueWait time.Duration) {
	p.emit("provider:acquire", providerPath, map[string]any{
		"outcome":     "admitted",
		"queueWaitMs": queueWait.Milliseconds(),
	})
}

func (p *ProviderEvents) emit(typ, providerPath string, data map[string]any) {
	if p.sink == nil {
		return
	}
	p.sink.Emit(scheduler.Event{Type: typ, NodePath: providerPath, Timestamp: time.Now(), Data: data})
}
