package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/evmts/smithers/internal/loader"
	"github.com/evmts/smithers/internal/scheduler"
)

// RunCmd executes a plan file to completion (spec §6 `smithers run`),
// grounded on cmd/hector/serve.go's load-config -> build-collaborators ->
// run shape, collapsed from a long-lived A2A server to one Ralph-loop pass.
type RunCmd struct {
	Path string `arg:"" help:"Path to the plan file (YAML)." type:"existingfile"`

	MaxFrames int           `help:"Maximum scheduler frames before giving up." default:"0"`
	Timeout   time.Duration `help:"Wall-clock budget for the whole run (0 = unbounded)."`
	Mock      bool          `help:"Run every agent/side-effect node in mock mode, no network or filesystem writes."`
	Provider  string        `name:"provider" help:"Named provider config to use for API credentials." default:"default"`
}

func (c *RunCmd) Run(deps *runDeps) error {
	ctx, cancel := signalContext()
	defer cancel()

	el, err := loader.YAMLLoader{}.Load(ctx, c.Path)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	tree := loader.Materialize(el)

	sched, _, cleanup, err := buildScheduler(deps, tree, c.Provider)
	if err != nil {
		return err
	}
	defer cleanup()

	backend, err := buildPersistence(deps)
	if err != nil {
		return err
	}
	defer backend.Close()

	runID, err := filepath.Abs(c.Path)
	if err != nil {
		runID = c.Path
	}
	if err := restoreCheckpoint(ctx, sched, backend, runID); err != nil {
		deps.log.Warn("checkpoint restore failed, starting fresh", "error", err.Error())
	}

	mock := c.Mock
	opts := scheduler.Options{
		MaxFrames: c.MaxFrames,
		Timeout:   c.Timeout,
		Verbose:   deps.cli.Verbose,
		MockMode:  &mock,
		OnFrame:   checkpointer(ctx, sched, backend, runID, deps.log),
	}
	result := sched.ExecutePlan(ctx, opts)

	deps.log.Info("run finished", "status", string(result.Status), "frames", result.Frames, "elapsed", result.Elapsed.String())
	if result.Err != nil {
		return fmt.Errorf("run failed: %w", result.Err)
	}
	return nil
}
