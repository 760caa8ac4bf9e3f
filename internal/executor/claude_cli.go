package executor

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

// ClaudeCLI is the claude-cli executor variant: spawns an external `claude`
// subprocess at argv level, never through a shell, matching the security
// posture of tools/command.go's CommandTool (allowlisted binary,
// exec.CommandContext, no string-interpolated shell invocation).
type ClaudeCLI struct {
	// Binary is the executable to invoke; defaults to "claude" on PATH.
	Binary string
}

// Execute implements scheduler.AgentExecutor for the claude-cli node type
// (spec §4.5: `--print --output-format text [--model …] [--max-turns N]
// [--allowedTools csv] [--system-prompt …] --prompt <prompt>`).
func (c *ClaudeCLI) Execute(ctx context.Context, t *node.Tree, n *node.Node, path string, opts scheduler.ExecuteOptions, tools []scheduler.PreparedTool) (scheduler.Result, error) {
	if opts.MockMode {
		return scheduler.Result{Text: "mock:" + path}, nil
	}

	prompt := BuildPrompt(t, n)
	binary := c.Binary
	if binary == "" {
		binary = "claude"
	}

	args := []string{"--print", "--output-format", "text"}
	if model := n.PropString("model", ""); model != "" {
		args = append(args, "--model", model)
	}
	if maxTurns := n.PropInt("maxTurns", 0); maxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(maxTurns))
	}
	if allowed, ok := n.Prop("allowedTools"); ok {
		if csv := toCSV(allowed); csv != "" {
			args = append(args, "--allowedTools", csv)
		}
	}
	if prompt.System != "" {
		args = append(args, "--system-prompt", prompt.System)
	}
	args = append(args, "--prompt", prompt.Body)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: strings.TrimSpace(stderr.String()), Cause: err}
	}

	out := stdout.String()
	usage := estimatedUsage(n.PropString("model", ""), prompt.System+prompt.Body, out)
	return scheduler.Result{Text: out, Usage: usage}, nil
}

func toCSV(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
