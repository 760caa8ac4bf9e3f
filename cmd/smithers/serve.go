package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evmts/smithers/internal/controller"
	"github.com/evmts/smithers/internal/loader"
	"github.com/evmts/smithers/internal/scheduler"
)

const shutdownGrace = 10 * time.Second

// ServeCmd runs a plan under the Ralph loop while exposing the execution
// controller's pause/resume/abort/skip/inject surface and a health/metrics
// endpoint over HTTP (spec §6 `smithers serve`, §4.7 the controller
// webhook). Grounded on cmd/hector/serve.go's chi router construction,
// narrowed from hector's full A2A service mesh down to the control
// endpoints internal/controller.Webhook already exposes.
type ServeCmd struct {
	Path     string `arg:"" help:"Path to the plan file to run under control." type:"existingfile"`
	Provider string `name:"provider" help:"Named provider config to use for API credentials." default:"default"`
	Mock     bool   `help:"Run every agent/side-effect node in mock mode."`
}

func (c *ServeCmd) Run(deps *runDeps) error {
	ctx, cancel := signalContext()
	defer cancel()

	el, err := loader.YAMLLoader{}.Load(ctx, c.Path)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	tree := loader.Materialize(el)

	sched, metrics, cleanup, err := buildScheduler(deps, tree, c.Provider)
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

	ctrl := controller.New()
	hook := controller.NewWebhook(ctrl, deps.cfg.Controller.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.Logger, middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if deps.cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	hook.Routes(r)

	host := deps.cfg.Controller.Host
	if host == "" {
		host = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", host, deps.cfg.Controller.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	srvErrCh := make(chan error, 1)
	go func() {
		deps.log.Info("control surface listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErrCh <- err
			return
		}
		srvErrCh <- nil
	}()

	mock := c.Mock
	opts := scheduler.Options{
		Verbose:    deps.cli.Verbose,
		MockMode:   &mock,
		Controller: ctrl,
		OnFrame:    checkpointer(ctx, sched, backend, runID, deps.log),
	}
	result := sched.ExecutePlan(ctx, opts)
	deps.log.Info("run finished", "status", string(result.Status), "frames", result.Frames, "elapsed", result.Elapsed.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		deps.log.Warn("control server shutdown", "error", err.Error())
	}
	if err := <-srvErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if result.Err != nil {
		return fmt.Errorf("run failed: %w", result.Err)
	}
	return nil
}
