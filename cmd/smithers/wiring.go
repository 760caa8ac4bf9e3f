package main

import (
	"context"
	"fmt"

	"github.com/evmts/smithers/internal/executor"
	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/observability"
	"github.com/evmts/smithers/internal/persist"
	"github.com/evmts/smithers/internal/provider"
	"github.com/evmts/smithers/internal/scheduler"
	"github.com/evmts/smithers/internal/sideeffect"
	"github.com/evmts/smithers/internal/toolprep"
)

// buildScheduler wires every scheduler collaborator the same way whether
// called from `run` or `serve`: the three executor variants keyed off the
// named provider's credentials, the file/worktree side effects, MCP-backed
// tool preparation, the rate/budget provider, and the OTel/Prometheus
// sink. Grounded on cmd/hector/serve.go's executeServeCommand, which
// performs this same "load config, build every collaborator, hand them to
// the run loop" assembly for hector's own component.Manager.
//
// The returned cleanup func must be called once the run (or server) is
// done; it tears down the tracer provider flush and any live MCP
// connections the tool preparer opened.
func buildScheduler(deps *runDeps, tree *node.Tree, providerName string) (*scheduler.Scheduler, *observability.Metrics, func(), error) {
	ctx := context.Background()

	tracer, err := observability.InitTracerProvider(ctx, observability.TracerConfig{
		Enabled:      deps.cfg.Observability.TracingEnabled,
		Verbose:      deps.cli.Verbose || deps.cfg.Observability.Verbose,
		EndpointURL:  deps.cfg.Observability.OTLPEndpoint,
		SamplingRate: deps.cfg.Observability.SamplingRate,
		ServiceName:  deps.cfg.Observability.ServiceName,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init tracer: %w", err)
	}
	metrics := observability.NewMetrics(deps.cfg.Observability.MetricsEnabled)
	sink := observability.NewSink(tracer.Tracer("smithers"), metrics)

	pc, ok := deps.cfg.Provider(providerName)
	if !ok {
		return nil, nil, nil, fmt.Errorf("no provider config named %q", providerName)
	}

	claudeAPI := executor.NewClaudeAPI(pc.APIKey)
	claudeAPI.BaseURL = pc.BaseURL
	claudeAPI.DefaultModel = pc.DefaultModel

	sched := scheduler.New(tree)
	sched.Executors = scheduler.Executors{
		Claude:    executor.NewClaude("", nil),
		ClaudeAPI: claudeAPI,
		ClaudeCLI: &executor.ClaudeCLI{},
	}
	sched.ToolPreparer = toolprep.NewPreparer()
	sched.Files = sideeffect.NewFileWriter(sideeffect.FileWriterConfig{})
	sched.Worktrees = &sideeffect.WorktreeManager{}
	sched.Provider = provider.New(observability.NewProviderEvents(sink))
	sched.Sink = sink

	cleanup := func() {
		if sd, ok := tracer.(interface{ Shutdown(context.Context) error }); ok {
			_ = sd.Shutdown(context.Background())
		}
	}
	return sched, metrics, cleanup, nil
}

// buildPersistence opens the checkpoint backend named by
// Config.Persistence (spec §14). Every sub-command opens one regardless
// of the configured kind, including the zero-config "memory" default, so
// `run`/`serve` share one restore-then-checkpoint-per-frame code path
// whether or not the operator has pointed it at a real KV cluster.
func buildPersistence(deps *runDeps) (persist.Backend, error) {
	p := deps.cfg.Persistence
	backend, err := persist.Open(persist.Options{
		Kind:      persist.Kind(p.Backend),
		Address:   p.Address,
		Endpoints: p.Endpoints,
		Path:      p.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("open persistence backend: %w", err)
	}
	return backend, nil
}

// checkpointer returns an Options.OnFrame callback that saves the
// scheduler's state to backend after every frame, keyed by runID (spec
// §14: resumability requires a checkpoint per frame, not just at exit,
// since a crash mid-run is the scenario this guards against).
func checkpointer(ctx context.Context, sched *scheduler.Scheduler, backend persist.Backend, runID string, log Logger) func(scheduler.FrameResult) {
	return func(fr scheduler.FrameResult) {
		byPath, approvals := sched.SnapshotState()
		if err := backend.Save(ctx, runID, persist.FromExecutionStates(byPath, approvals)); err != nil {
			log.Warn("checkpoint save failed", "frame", fr.Frame, "error", err.Error())
		}
	}
}

// restoreCheckpoint loads and applies any prior snapshot for runID. A
// missing checkpoint (first run, or a memory backend after a restart) is
// not an error.
func restoreCheckpoint(ctx context.Context, sched *scheduler.Scheduler, backend persist.Backend, runID string) error {
	snap, ok, err := backend.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil
	}
	byPath, approvals := persist.ToExecutionStates(snap)
	sched.RestoreState(byPath, approvals)
	return nil
}
