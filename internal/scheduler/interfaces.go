package scheduler

import (
	"context"

	"github.com/evmts/smithers/internal/node"
)

// AgentExecutor is the common contract all three executor variants satisfy
// (spec §4.5 "a common contract execute(node, opts, preparedTools)").
type AgentExecutor interface {
	Execute(ctx context.Context, t *node.Tree, n *node.Node, path string, opts ExecuteOptions, tools []PreparedTool) (Result, error)
}

// Executors groups the three node-type-selected variants the scheduler
// dispatches to at step 11 (spec §4.5).
type Executors struct {
	Claude    AgentExecutor
	ClaudeAPI AgentExecutor
	ClaudeCLI AgentExecutor
}

func (e Executors) forType(t node.Type) AgentExecutor {
	switch t {
	case node.TypeClaude:
		return e.Claude
	case node.TypeClaudeAPI:
		return e.ClaudeAPI
	case node.TypeClaudeCLI:
		return e.ClaudeCLI
	default:
		return nil
	}
}

// ToolPreparer resolves the merged tool list for an agent node (spec §4.8).
type ToolPreparer interface {
	Prepare(ctx context.Context, t *node.Tree, n *node.Node) ([]PreparedTool, error)
}

// PreparedTool is a single tool available to an executor invocation, either
// imported from an MCP server or declared inline on the node (spec §4.8).
type PreparedTool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Invoke      func(ctx context.Context, args map[string]any) (string, error)
}

// FileWriter performs the File side effect (spec §4.6 "File").
type FileWriter interface {
	WriteFile(ctx context.Context, n *node.Node, mock bool) (result any, err error)
}

// WorktreeManager performs the Worktree side effect (spec §4.4 step 9).
type WorktreeManager interface {
	CreateWorktree(ctx context.Context, n *node.Node, mock bool) (absPath string, err error)
}

// Controller is the optional external execution controller (spec §4.7).
type Controller interface {
	IsPaused() bool
	IsAborted() bool
	AbortReason() string
	NextSkip() (path string, ok bool)
	NextInjection() (text string, ok bool)
	Status(snapshot StatusSnapshot) StatusSnapshot
}

// StatusSnapshot is the observer-facing getStatus() projection (spec §4.7).
type StatusSnapshot struct {
	Frame        int
	ElapsedMs    int64
	Paused       bool
	Pending      int
	Running      int
	Completed    int
	RunningNodes []string
	PendingNodes []string
}

// EventSink receives the ordered, timestamped debug/observability stream
// (spec §5 "Events in the debug stream ... monotonic timestamp and
// frameNumber").
type EventSink interface {
	Emit(Event)
}

// RateBudgetProvider enforces the claude-provider ancestor's limits before
// an agent node executes (spec §4.9). providerNode is passed on every call
// (rather than resolved once and cached) so a provider implementation can
// read its current props and update its live limiter in place when the
// claude-provider node re-renders with new limits, per spec §4.9.
type RateBudgetProvider interface {
	// Acquire blocks (up to queueTimeoutMs) or errors if providerNode's
	// limits are exceeded.
	Acquire(ctx context.Context, providerPath string, providerNode *node.Node, model string) error
	// Release records usage against the provider's budget after execution.
	Release(ctx context.Context, providerPath string, providerNode *node.Node, model string, usage Usage)
}

// Usage is token/cost accounting reported by an executor after a call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}
