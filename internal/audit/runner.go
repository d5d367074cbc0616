// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

// ExecFunc runs name with args in dir and returns its stdout and exit code.
// err is reserved for failures to run the command at all.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) (stdout []byte, exitCode int, err error)

type tool struct {
	format  Format
	command string
	args    []string
	timeout time.Duration
	// exit codes that still carry a report; npm and cargo exit 1 on findings
	okExit  []int
	markers []string
}

var tools = map[types.ProjectType]tool{
	types.ProjectNodeFrontend: {
		format:  FormatNPM,
		command: "npm",
		args:    []string{"audit", "--json"},
		timeout: 60 * time.Second,
		okExit:  []int{0, 1},
		markers: []string{"package.json"},
	},
	types.ProjectPythonBackend: {
		format:  FormatPip,
		command: "pip-audit",
		args:    []string{"--format", "json"},
		timeout: 120 * time.Second,
		okExit:  []int{0},
		markers: []string{"requirements.txt", "pyproject.toml", "setup.py"},
	},
	types.ProjectRust: {
		format:  FormatCargo,
		command: "cargo",
		args:    []string{"audit", "--json"},
		timeout: 120 * time.Second,
		okExit:  []int{0, 1},
		markers: []string{"Cargo.toml"},
	},
}

// Runner executes the audit tool matching a project's type.
type Runner struct {
	exec ExecFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExec replaces command execution, mainly for tests.
func WithExec(fn ExecFunc) RunnerOption {
	return func(r *Runner) { r.exec = fn }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{exec: runCommand}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Alerts runs the project's audit tool. Projects without a supported type
// or marker file, missing tools, timeouts, and unreadable reports all
// yield no alerts.
func (r *Runner) Alerts(ctx context.Context, project manifest.Project) []*types.Alert {
	t, ok := tools[project.Type]
	if !ok || !hasAnyFile(project.Path, t.markers) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, code, err := r.exec(ctx, project.Path, t.command, t.args...)
	if err != nil {
		slog.Debug("audit tool failed", "tool", t.command, "project", project.Name, "err", err)
		return nil
	}
	if !slices.Contains(t.okExit, code) {
		slog.Debug("audit tool exited with failure", "tool", t.command, "project", project.Name, "exit_code", code)
		return nil
	}

	alerts, err := ParseFormat(t.format, out, project)
	if err != nil {
		slog.Debug("unreadable audit report", "tool", t.command, "project", project.Name, "err", err)
		return nil
	}
	return alerts
}

func hasAnyFile(dir string, names []string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, -1, fmt.Errorf("running %s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, -1, fmt.Errorf("running %s: %w", name, err)
	}
	return stdout.Bytes(), 0, nil
}
