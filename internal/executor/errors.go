package executor

import (
	"fmt"
	"time"
)

// Kind classifies an executor-level failure (spec §4.5 "Executor-level
// errors", §7's ApiError/RateLimitError/ToolError taxonomy).
type Kind string

const (
	KindAPIError  Kind = "ApiError"
	KindRateLimit Kind = "RateLimitError"
	KindToolError Kind = "ToolError"
)

// Error enriches every executor failure with {nodeType, nodePath, input}
// context per spec §4.5, mirroring hector's wrapped-error style
// (llms/anthropic.go's `"Anthropic API error: %s"` formatting).
type Error struct {
	Kind       Kind
	NodePath   string
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s at %s: %s (retry after %v)", e.Kind, e.NodePath, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.NodePath, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
