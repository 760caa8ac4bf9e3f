// Package sideeffect implements the concrete File and Worktree side
// effects the scheduler dispatches to (spec §4.4 steps 4 and 9, §4.6).
package sideeffect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evmts/smithers/internal/node"
)

// FileWriterConfig mirrors the safety knobs of config.FileWriterConfig:
// a working-directory jail, a size cap, and an extension allow/deny list.
type FileWriterConfig struct {
	WorkingDirectory  string
	MaxFileSize       int
	AllowedExtensions []string
	DeniedExtensions  []string
	BackupOnOverwrite bool
}

// FileWriter implements scheduler.FileWriter (spec §4.6 "File"). Grounded
// on tools/file_writer.go's FileWriterTool: path validation rejects
// absolute paths and directory traversal, the result is written under a
// jailed working directory, and an existing file is backed up to
// "<path>.bak" before being overwritten.
type FileWriter struct {
	cfg FileWriterConfig
}

// NewFileWriter builds a FileWriter with hector's defaults (1MB cap,
// backup-on-overwrite, all extensions allowed) when cfg is the zero value.
func NewFileWriter(cfg FileWriterConfig) *FileWriter {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 1048576
	}
	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "."
	}
	return &FileWriter{cfg: cfg}
}

// WriteFile implements scheduler.FileWriter. The node's `path` prop is the
// file path and `content` is the node's flattened TEXT content (spec §4.6
// "Content is the flattened TEXT content of the node").
func (w *FileWriter) WriteFile(ctx context.Context, n *node.Node, mock bool) (any, error) {
	path := n.PropString("path", "")
	if path == "" {
		return nil, fmt.Errorf("sideeffect: file node missing path prop")
	}
	content := n.PropString("content", "")

	if err := w.validatePath(path); err != nil {
		return nil, err
	}
	if len(content) > w.cfg.MaxFileSize {
		return nil, fmt.Errorf("sideeffect: content too large: %d bytes (max %d)", len(content), w.cfg.MaxFileSize)
	}

	fullPath := filepath.Join(w.cfg.WorkingDirectory, path)
	if mock {
		return fmt.Sprintf("mock-write:%s (%d bytes)", fullPath, len(content)), nil
	}

	fileExisted := false
	if w.cfg.BackupOnOverwrite {
		if _, err := os.Stat(fullPath); err == nil {
			fileExisted = true
			if err := copyFile(fullPath, fullPath+".bak"); err != nil {
				return nil, fmt.Errorf("sideeffect: backup failed: %w", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("sideeffect: mkdir failed: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("sideeffect: write failed: %w", err)
	}

	action := "created"
	if fileExisted {
		action = "overwritten"
	}
	return fmt.Sprintf("File %s: %s (%d bytes)", action, path, len(content)), nil
}

func (w *FileWriter) validatePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("sideeffect: absolute paths not allowed: %s", path)
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("sideeffect: directory traversal not allowed: %s", path)
	}

	absPath, err := filepath.Abs(filepath.Join(w.cfg.WorkingDirectory, cleaned))
	if err != nil {
		return fmt.Errorf("sideeffect: invalid path: %w", err)
	}
	absWorkDir, err := filepath.Abs(w.cfg.WorkingDirectory)
	if err != nil {
		return fmt.Errorf("sideeffect: invalid working directory: %w", err)
	}
	if !strings.HasPrefix(absPath, absWorkDir) {
		return fmt.Errorf("sideeffect: path escapes working directory: %s", path)
	}

	ext := filepath.Ext(path)
	for _, denied := range w.cfg.DeniedExtensions {
		if ext == denied {
			return fmt.Errorf("sideeffect: extension %q is denied", ext)
		}
	}
	if len(w.cfg.AllowedExtensions) > 0 {
		allowed := false
		for _, a := range w.cfg.AllowedExtensions {
			if ext == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("sideeffect: extension %q not in allow-list", ext)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
