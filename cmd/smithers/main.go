// Command smithers is the CLI entry point for the Ralph-loop plan runner
// (spec §6). Grounded on cmd/hector/main.go: a `kong`-parsed `CLI` struct
// whose fields are sub-command structs tagged `cmd:""`, global flags
// (config path, log level/format) living alongside them, and a
// kong.Parse -> ctx.Run(&cli) dispatch.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	smithersconfig "github.com/evmts/smithers/internal/config"
)

// CLI mirrors cmd/hector/main.go's CLI struct shape: one field per
// sub-command plus the global flags every sub-command's Run reads off the
// parent *CLI, exactly as hector's ServeCmd.Run(cli *CLI) does.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Execute a plan file to completion."`
	Plan    PlanCmd    `cmd:"" help:"Load and render a plan without executing it."`
	Init    InitCmd    `cmd:"" help:"Scaffold a new plan file and config."`
	Serve   ServeCmd   `cmd:"" help:"Run the execution controller's HTTP control surface."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to smithers.yaml." type:"path" env:"SMITHERS_CONFIG" default:"./smithers.yaml"`
	LogLevel  string `help:"Log level (trace, debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or json)." default:"simple"`
	Verbose   bool   `help:"Verbose debug stream + stdout span export."`
}

// VersionCmd prints the build version, matching cmd/hector's VersionCmd.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	fmt.Printf("smithers version %s\n", version)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("smithers"),
		kong.Description("Ralph-loop multi-agent workflow runner"),
		kong.UsageOnError(),
	)

	log := newLogger(cli.LogLevel, cli.LogFormat)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	err = ctx.Run(&runDeps{cli: &cli, cfg: cfg, log: log})
	ctx.FatalIfErrorf(err)
}

// loadConfig reads smithers.yaml if present, otherwise falls back to
// Config.Default() (spec §6's discovery: "default config file if it
// exists", else zero-config), matching cmd/hector/config_loader.go's
// loadConfigFromArgsOrFile fallthrough.
func loadConfig(path string) (*smithersconfig.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return smithersconfig.Default(), nil
	}
	return smithersconfig.LoadConfig(path)
}

// runDeps is threaded into every sub-command's Run as the kong "parent"
// argument, the same role cmd/hector's *CLI plays for ServeCmd.Run(cli
// *CLI) — except here it also carries the loaded config and logger so
// sub-commands don't each re-derive them.
type runDeps struct {
	cli *CLI
	cfg *smithersconfig.Config
	log Logger
}
