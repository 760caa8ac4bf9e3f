package controller

import "testing"

func TestPauseResumeRoundTrip(t *testing.T) {
	c := New()
	if c.IsPaused() {
		t.Fatalf("expected not paused initially")
	}
	c.Pause()
	if !c.IsPaused() {
		t.Fatalf("expected paused after Pause()")
	}
	c.Resume()
	if c.IsPaused() {
		t.Fatalf("expected not paused after Resume()")
	}
}

func TestAbortIsSticky(t *testing.T) {
	c := New()
	c.Abort("first")
	c.Abort("second")
	if !c.IsAborted() {
		t.Fatalf("expected aborted")
	}
	if got := c.AbortReason(); got != "first" {
		t.Fatalf("expected first abort reason to stick, got %q", got)
	}
}

func TestSkipAndInjectQueuesDrainInOrder(t *testing.T) {
	c := New()
	c.Skip("ROOT/claude[0]")
	c.Skip("ROOT/claude[1]")
	if path, ok := c.NextSkip(); !ok || path != "ROOT/claude[0]" {
		t.Fatalf("unexpected first skip: %q %v", path, ok)
	}
	if path, ok := c.NextSkip(); !ok || path != "ROOT/claude[1]" {
		t.Fatalf("unexpected second skip: %q %v", path, ok)
	}
	if _, ok := c.NextSkip(); ok {
		t.Fatalf("expected skip queue to be drained")
	}

	c.Inject("extra instructions")
	text, ok := c.NextInjection()
	if !ok || text != "extra instructions" {
		t.Fatalf("unexpected injection: %q %v", text, ok)
	}
	if _, ok := c.NextInjection(); ok {
		t.Fatalf("expected inject queue to be drained")
	}
}
