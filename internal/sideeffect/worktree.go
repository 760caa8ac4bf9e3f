package sideeffect

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evmts/smithers/internal/node"
)

// refPattern is spec §4.4 step 9's branch/baseBranch validation pattern.
var refPattern = regexp.MustCompile(`^[A-Za-z0-9_./-]+$`)

// WorktreeManager implements scheduler.WorktreeManager (spec §4.4 step 9).
// Grounded on tools/command.go's CommandTool for the general discipline of
// validating input before spawning a subprocess, but departs from its
// `sh -c` invocation: git plumbing commands are spawned at argv level
// through exec.CommandContext with no shell involved, since worktree
// paths and branch names are untrusted node-authored strings.
type WorktreeManager struct {
	// GitBinary defaults to "git" on PATH.
	GitBinary string
}

// CreateWorktree implements scheduler.WorktreeManager.
func (w *WorktreeManager) CreateWorktree(ctx context.Context, n *node.Node, mock bool) (string, error) {
	path := n.PropString("path", "")
	branch := n.PropString("branch", "")
	baseBranch := n.PropString("baseBranch", "")

	if path == "" {
		return "", fmt.Errorf("sideeffect: worktree node missing path prop")
	}
	if err := validateRef("branch", branch); err != nil {
		return "", err
	}
	if baseBranch != "" {
		if err := validateRef("baseBranch", baseBranch); err != nil {
			return "", err
		}
	}

	absPath, err := absPath(path)
	if err != nil {
		return "", fmt.Errorf("sideeffect: invalid worktree path: %w", err)
	}

	if mock {
		return absPath, nil
	}

	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		current, err := w.currentBranch(ctx, absPath)
		if err != nil {
			return "", fmt.Errorf("sideeffect: worktree exists at %s but branch check failed: %w", absPath, err)
		}
		if current != branch {
			return "", fmt.Errorf("sideeffect: worktree at %s is on branch %q, expected %q", absPath, current, branch)
		}
		return absPath, nil
	}

	args := []string{"worktree", "add", "-b", branch, "--", absPath}
	if baseBranch != "" {
		args = append(args, baseBranch)
	}
	if err := w.run(ctx, args...); err != nil {
		return "", fmt.Errorf("sideeffect: git worktree add failed: %w", err)
	}
	return absPath, nil
}

// validateRef rejects anything outside spec §4.4 step 9's allow pattern
// plus the explicitly called-out unsafe constructs: a leading "-" (which a
// naive caller could mistake for a git flag), an embedded ".." (path/ref
// traversal), "@{" (git's reflog/upstream shorthand), and "~" (ref
// ancestry shorthand).
func validateRef(field, ref string) error {
	if ref == "" {
		return fmt.Errorf("sideeffect: %s must not be empty", field)
	}
	if !refPattern.MatchString(ref) {
		return fmt.Errorf("sideeffect: %s %q contains disallowed characters", field, ref)
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("sideeffect: %s %q must not start with '-'", field, ref)
	}
	if strings.Contains(ref, "..") || strings.Contains(ref, "@{") || strings.Contains(ref, "~") {
		return fmt.Errorf("sideeffect: %s %q contains disallowed sequence", field, ref)
	}
	return nil
}

func (w *WorktreeManager) currentBranch(ctx context.Context, path string) (string, error) {
	out, err := w.output(ctx, "-C", path, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (w *WorktreeManager) binary() string {
	if w.GitBinary != "" {
		return w.GitBinary
	}
	return "git"
}

func (w *WorktreeManager) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, w.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func absPath(path string) (string, error) {
	return filepath.Abs(path)
}

func (w *WorktreeManager) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, w.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
