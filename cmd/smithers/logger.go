package main

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// Logger is the thin subset of hclog.Logger the CLI commands use; kept as
// an interface so runDeps can be faked in tests without pulling in hclog.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// newLogger builds an hclog.Logger colorized unless NO_COLOR is set or
// stderr isn't a terminal, matching spec §7's "leveled, colorized unless
// NO_COLOR is set or output is not a TTY" requirement. Grounded on
// cmd/hector/logger.go's CLI-flag/env-var precedence (the --log-level flag
// already wins by being read before this is called) combined with
// pkg/plugins/grpc/loader.go's hclog.New construction, using
// github.com/mattn/go-isatty for the TTY check hector's own pkg/logger
// does with a hand-rolled os.ModeCharDevice check.
func newLogger(level, format string) hclog.Logger {
	color := hclog.AutoColor
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
		color = hclog.ColorOff
	}

	opts := &hclog.LoggerOptions{
		Name:       "smithers",
		Level:      hclog.LevelFromString(strings.ToUpper(level)),
		Output:     os.Stderr,
		Color:      color,
		JSONFormat: format == "json",
	}
	return hclog.New(opts)
}
