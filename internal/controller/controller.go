// Package controller implements the external execution controller (spec
// §4.7): pause/resume/abort/skip/inject predicates the scheduler consults
// once per frame (scheduler.Controller), plus an optional HTTP control
// surface for driving it remotely (webhook.go).
//
// Grounded on AleutianLocal's agent/loop.go DefaultAgentLoop: a
// mutex-guarded control object addressed by external callers (there,
// Abort(ctx, sessionID) force-transitions a running session to its error
// state and GetState reports a snapshot without mutating it), adapted
// from per-session session-store lookups to a single in-process run
// since one Smithers process drives exactly one scheduler run.
package controller

import (
	"sync"

	"github.com/evmts/smithers/internal/scheduler"
)

// Controller is the concrete, mutable implementation of
// scheduler.Controller. Operator-facing methods (Pause, Resume, Abort,
// Skip, Inject) are called from a CLI stdin reader or the HTTP webhook;
// the read-only methods are what the scheduler consults each frame.
type Controller struct {
	mu sync.Mutex

	paused      bool
	aborted     bool
	abortReason string

	skipQueue   []string
	injectQueue []string

	snapshot scheduler.StatusSnapshot
}

// New builds a fresh Controller, starting unpaused and unaborted.
func New() *Controller {
	return &Controller{}
}

var _ scheduler.Controller = (*Controller)(nil)

// Pause suspends the run at the next frame boundary (spec §4.7 "pause").
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume clears a prior Pause.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Abort terminates the run at the next checkpoint with the given reason.
// A no-op once already aborted, matching DefaultAgentLoop.Abort's
// already-terminal-state no-op.
func (c *Controller) Abort(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		return
	}
	c.aborted = true
	c.abortReason = reason
}

// Skip enqueues a node path to be marked complete without execution the
// next time the scheduler considers it (spec §4.7 "skip").
func (c *Controller) Skip(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipQueue = append(c.skipQueue, path)
}

// Inject enqueues text to be appended as a child of the next dispatched
// agent node (spec §4.7 "inject").
func (c *Controller) Inject(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.injectQueue = append(c.injectQueue, text)
}

// IsPaused implements scheduler.Controller.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// IsAborted implements scheduler.Controller.
func (c *Controller) IsAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// AbortReason implements scheduler.Controller.
func (c *Controller) AbortReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortReason
}

// NextSkip implements scheduler.Controller, draining one queued path.
func (c *Controller) NextSkip() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.skipQueue) == 0 {
		return "", false
	}
	path := c.skipQueue[0]
	c.skipQueue = c.skipQueue[1:]
	return path, true
}

// NextInjection implements scheduler.Controller, draining one queued text.
func (c *Controller) NextInjection() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.injectQueue) == 0 {
		return "", false
	}
	text := c.injectQueue[0]
	c.injectQueue = c.injectQueue[1:]
	return text, true
}

// Status implements scheduler.Controller: records the latest snapshot the
// scheduler reported and echoes it back (augmented with Paused) for an
// operator to poll via GetStatus/the webhook's /control/status.
func (c *Controller) Status(snapshot scheduler.StatusSnapshot) scheduler.StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot.Paused = c.paused
	c.snapshot = snapshot
	return snapshot
}

// LastStatus returns the most recent snapshot reported via Status,
// without requiring the caller to be the scheduler itself.
func (c *Controller) LastStatus() scheduler.StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}
