package scheduler

import (
	"errors"
	"fmt"
)

var (
	errNoFileWriter   = errors.New("scheduler: no FileWriter configured for a file node")
	errNoWorktreeMgr  = errors.New("scheduler: no WorktreeManager configured for a worktree node")
	errNoExecutor     = errors.New("scheduler: no executor configured for this node type")
)

// Kind classifies a scheduler-level failure, matching spec §7's error
// taxonomy. Executor- and side-effect-specific kinds (RateLimitError,
// ApiError, ToolError, WorktreeError, FileIOError) are defined in their
// owning packages and wrapped here with %w so the scheduler's caller can
// still errors.Is/errors.As through to the root cause, matching hector's
// own layered error style (workflow/executor.go's AddError +
// llms/anthropic.go's wrapped transport errors).
type Kind string

const (
	KindMaxFramesReached Kind = "MaxFramesReached"
	KindSchedulerTimeout Kind = "SchedulerTimeout"
	KindHumanRejected    Kind = "HumanRejected"
	KindControllerAbort  Kind = "ControllerAbort"
	KindExecutionError   Kind = "ExecutionError"
)

// Error is the scheduler's own error type, enriched with the node path the
// failure occurred at when one is known (spec §4.5 "Executor-level errors":
// "{nodeType, nodePath, input}").
type Error struct {
	Kind     Kind
	NodePath string
	Frame    int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.NodePath != "" {
		return fmt.Sprintf("%s at %s (frame %d): %s", e.Kind, e.NodePath, e.Frame, e.Message)
	}
	return fmt.Sprintf("%s (frame %d): %s", e.Kind, e.Frame, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
