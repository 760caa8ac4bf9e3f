package main

import (
	"fmt"

	"github.com/evmts/smithers/internal/loader"
	"github.com/evmts/smithers/internal/serialize"
)

// PlanCmd loads and renders a plan without executing it (spec §6 `smithers
// plan`): a dry-run that surfaces the serialized XML a `run` invocation
// would hand to the first agent node, useful for reviewing a plan before
// spending tokens on it.
type PlanCmd struct {
	Path string `arg:"" help:"Path to the plan file (YAML)." type:"existingfile"`
}

func (c *PlanCmd) Run(deps *runDeps) error {
	ctx, cancel := signalContext()
	defer cancel()

	el, err := loader.YAMLLoader{}.Load(ctx, c.Path)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	tree := loader.Materialize(el)
	fmt.Println(serialize.Serialize(tree, tree.Root().ID))
	return nil
}
