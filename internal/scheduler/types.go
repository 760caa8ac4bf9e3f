package scheduler

import (
	"context"
	"time"

	"github.com/evmts/smithers/internal/node"
)

// Options configures a single executePlan run (spec §4.4 "Options").
type Options struct {
	MaxFrames int           // default 100; 0 means "use default"
	Timeout   time.Duration // 0 means no wall-clock bound
	Verbose   bool
	MockMode  *bool // nil defers to environment, per spec's undefined/true/false tri-state

	Controller Controller
	Debug      DebugConfig

	OnPlan         func(xml string, frame int)
	OnFrame        func(FrameResult)
	OnFrameUpdate  func(tree *node.Tree, frame int)
	OnPlanWithPrompt func(info PlanWithPromptInfo)
	OnHumanPrompt  func(ctx context.Context, message, content string) (bool, error)
	OnValueSet     func(name string, value any)
}

// PlanWithPromptInfo describes a rendered plan handed to an agent alongside
// its prompt, surfaced to observers for logging/debugging (spec §4.4 step 2).
type PlanWithPromptInfo struct {
	NodePath string
	Prompt   string
	PlanXML  string
}

// DebugConfig controls the observability event stream (spec §4.4 "debug").
type DebugConfig struct {
	Enabled       bool
	EventTypes    []string // empty means "all"
	CaptureTree   bool
}

// ExecutionResult is executePlan's terminal return value.
type ExecutionResult struct {
	Status      TerminationReason
	Frames      int
	FinalOutput any
	Err         error
	Elapsed     time.Duration
}

// TerminationReason classifies why the Ralph loop stopped (spec §4.4, §7).
type TerminationReason string

const (
	ReasonMaxFrames     TerminationReason = "max_frames"
	ReasonTimeout       TerminationReason = "timeout"
	ReasonStopNode      TerminationReason = "stop_node"
	ReasonHumanRejected TerminationReason = "human_rejected"
	ReasonAbort         TerminationReason = "control_abort"
	ReasonQuiescent     TerminationReason = "quiescent" // no more pending work; the happy path
)

// FrameResult is emitted to Options.OnFrame once per completed frame.
type FrameResult struct {
	Frame        int
	StateChanged bool
	Executed     []string // node paths executed this frame
}

// ExecuteOptions is the subset of run-level options forwarded to an
// individual agent executor invocation (spec §4.4 step 11, §4.5).
type ExecuteOptions struct {
	MockMode bool
	Verbose  bool
	OnStream func(StreamEvent)
}

// StreamEvent is a single streamed chunk from an agent executor (spec §4.5
// "Streaming").
type StreamEvent struct {
	Type    string // "text" | "tool_use"
	Text    string
	ToolUse *ToolUseEvent
}

// ToolUseEvent carries a single in-flight tool call for streaming observers.
type ToolUseEvent struct {
	ID    string
	Name  string
	Input map[string]any
}

// Result is what an agent executor returns: either free text or, when the
// node declared a schema, a structured value (spec §4.5 "Structured output").
type Result struct {
	Text       string
	Structured any
	// Usage is the token/cost accounting for this call: claude-api parses
	// it from the Anthropic response's usage field when present, and every
	// variant falls back to a tiktoken-based estimate otherwise.
	Usage Usage
}
