// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/bonial-oss/workspace-brain/internal/audit"
	"github.com/bonial-oss/workspace-brain/internal/config"
	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/manifest"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ExitError signals a non-zero exit code with an optional message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	now func() time.Time
	// logOut receives log output. Nil means stderr.
	logOut io.Writer
	// sources and lookup replace the audit sources and exploit intelligence
	// when set.
	sources func(*config.Config) []audit.Source
	lookup  exploit.Lookup
}

func (a *app) utcNow() time.Time { return a.now().UTC() }

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{now: time.Now})
}

func newRootCommand(a *app) *cobra.Command {
	a.v = config.New()

	cmd := &cobra.Command{
		Use:     "wbrain",
		Short:   "Shared brain for multi-project workspaces",
		Version: Version,
		Long: `wbrain keeps a brain directory for a workspace of related projects. It
scores dependency vulnerabilities across projects by risk and tracks which
projects are related, learned from the daily session logs.

Usage:
  wbrain security scan
  wbrain security assess --fail-on critical
  wbrain relationships refresh --days 30`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("workspace", "w", "", "Workspace root (default: current directory)")
	flags.String("brain-dir", "brain", "Brain directory, relative to the workspace")
	flags.String("cache-dir", "", "Override cache directory for exploit feeds")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.Bool("no-kev", false, "Disable CISA KEV exploit lookups")
	flags.Bool("no-nvd", false, "Disable NVD exploit lookups")
	flags.String("nvd-api-key", "", "NVD API key")
	flags.String("github-token", "", "GitHub token for Dependabot alerts")
	flags.Bool("skip-db-update", false, "Use cached KEV data without update check")

	cmd.AddCommand(
		newSecurityCommand(a),
		newRelationshipsCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	level, err := parseLevel(a.v.GetString(config.KeyLogLevel))
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	a.initLogger(level)

	cfg, err := config.Load(a.v)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	a.cfg = cfg
	slog.Debug("resolved configuration", "workspace", cfg.Workspace, "brain", cfg.BrainPath(), "cache", cfg.CacheDir)
	return nil
}

// initLogger installs a tint handler as the default slog logger.
func (a *app) initLogger(level slog.Leveler) {
	w := a.logOut
	noColor := true
	if w == nil {
		w = os.Stderr
		noColor = !term.IsTerminal(int(os.Stderr.Fd()))
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    noColor,
		}),
	))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// requireBrain fails with exit code 3 when the brain directory is missing.
func (a *app) requireBrain() error {
	info, err := os.Stat(a.cfg.BrainPath())
	if err != nil || !info.IsDir() {
		return &ExitError{Code: 3, Message: fmt.Sprintf("no brain directory at %s", a.cfg.BrainPath())}
	}
	return nil
}

// projects reads the workspace manifest. A missing manifest is exit code 3.
func (a *app) projects() ([]manifest.Project, error) {
	if err := a.requireBrain(); err != nil {
		return nil, err
	}
	projects, err := manifest.Load(a.cfg.ManifestPath(), a.cfg.Workspace)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &ExitError{Code: 3, Message: fmt.Sprintf("no manifest at %s", a.cfg.ManifestPath())}
	}
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	return projects, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wbrain version",
		Args:  cobra.NoArgs,
		// The version command needs no workspace.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "wbrain %s\n", Version)
			return nil
		},
	}
}
