// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/workspace-brain/internal/audit"
	"github.com/bonial-oss/workspace-brain/internal/datasource/kev"
	"github.com/bonial-oss/workspace-brain/internal/datasource/nvd"
	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/output"
	"github.com/bonial-oss/workspace-brain/internal/risk"
	"github.com/bonial-oss/workspace-brain/internal/store"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

func newSecurityCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Collect and prioritise dependency vulnerabilities",
	}
	cmd.AddCommand(
		newSecurityScanCommand(a),
		newSecurityAssessCommand(a),
		newSecurityStatusCommand(a),
	)
	return cmd
}

func newSecurityScanCommand(a *app) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run audit tools and Dependabot for every project and store the alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.scan(cmd.Context(), cmd.OutOrStdout(), project)
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Only scan this project")
	return cmd
}

func (a *app) scan(ctx context.Context, w io.Writer, only string) error {
	projects, err := a.projects()
	if err != nil {
		return err
	}
	if only != "" {
		p, ok := manifest.Find(projects, only)
		if !ok {
			return &ExitError{Code: 2, Message: fmt.Sprintf("project %q is not in the manifest", only)}
		}
		projects = []manifest.Project{p}
	}

	scanner := audit.NewScanner(a.auditSources()...)
	alerts, err := scanner.ScanAll(ctx, projects)
	if err != nil {
		return fmt.Errorf("scanning projects: %w", err)
	}

	alertStore := store.NewAlertStore(a.cfg.AlertsPath())
	if err := alertStore.Save(alerts); err != nil {
		return fmt.Errorf("saving alerts: %w", err)
	}
	slog.Info("stored alerts", "path", alertStore.Path(), "count", len(alerts))
	fmt.Fprintf(w, "Found %d alerts across %d projects\n", len(alerts), len(projects))
	return nil
}

func (a *app) auditSources() []audit.Source {
	if a.sources != nil {
		return a.sources(a.cfg)
	}
	return []audit.Source{
		audit.NewRunner(),
		audit.NewDependabot(a.cfg.GitHubToken),
	}
}

func newSecurityAssessCommand(a *app) *cobra.Command {
	var (
		failOn string
		format string
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score stored alerts and write the security context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.assess(cmd.Context(), cmd.OutOrStdout(), format, failOn)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&failOn, "fail-on", "", "Exit code 1 if any assessment is at or above this priority: critical, high")
	flags.StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}

func (a *app) assess(ctx context.Context, w io.Writer, format, failOn string) error {
	threshold, err := parseFailOn(failOn)
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported output format: %s", format)}
	}
	if err := a.requireBrain(); err != nil {
		return err
	}

	stored, _, err := store.NewAlertStore(a.cfg.AlertsPath()).Load()
	if errors.Is(err, store.ErrCorrupt) {
		slog.Warn("ignoring unreadable alert store", "err", err)
	} else if err != nil {
		return fmt.Errorf("loading alerts: %w", err)
	}
	alerts := make([]types.Alert, 0, len(stored))
	for _, alert := range stored {
		alerts = append(alerts, *alert)
	}

	engine := risk.New(a.exploitLookup(ctx), risk.WithClock(a.utcNow))
	assessments := engine.AssessAll(ctx, alerts)

	if err := store.NewAssessmentStore(a.cfg.AssessmentsPath()).Save(assessments); err != nil {
		return fmt.Errorf("saving assessments: %w", err)
	}
	if err := a.writeSecurityContext(assessments); err != nil {
		return err
	}

	summary := risk.Summarize(assessments)
	switch format {
	case "json":
		if err := output.WriteJSON(w, assessments); err != nil {
			return err
		}
	default:
		fmt.Fprintf(w, "Assessed %d alerts: %d fix now, %d fix soon, %d monitor\n",
			summary.Total, summary.ByAction[types.ActionFixNow],
			summary.ByAction[types.ActionFixSoon], summary.ByAction[types.ActionMonitor])
	}

	if threshold != "" && summary.AtLeast(threshold) {
		return &ExitError{Code: 1, Message: fmt.Sprintf("found assessments at or above %s priority", threshold)}
	}
	return nil
}

func parseFailOn(s string) (types.Priority, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "critical":
		return types.PriorityCritical, nil
	case "high":
		return types.PriorityHigh, nil
	default:
		return "", &ExitError{Code: 2, Message: fmt.Sprintf("unsupported --fail-on value: %s", s)}
	}
}

// exploitLookup chains the enabled exploit-intelligence sources, KEV first.
// It returns nil when none is enabled.
func (a *app) exploitLookup(ctx context.Context) exploit.Lookup {
	if a.lookup != nil {
		return a.lookup
	}

	var lookups []exploit.Lookup
	if !a.cfg.NoKEV {
		src := kev.NewSource(a.cfg.CacheDir)
		if err := src.Load(ctx, a.cfg.SkipDBUpdate); err != nil {
			slog.Warn("KEV data unavailable, continuing without it", "err", err)
		} else {
			lookups = append(lookups, src)
		}
	}
	if !a.cfg.NoNVD {
		var opts []nvd.Option
		if a.cfg.NVDAPIKey != "" {
			opts = append(opts, nvd.WithAPIKey(a.cfg.NVDAPIKey))
		}
		lookups = append(lookups, nvd.New(opts...))
	}
	if len(lookups) == 0 {
		return nil
	}
	return exploit.Chain(lookups...)
}

func (a *app) writeSecurityContext(assessments []types.Assessment) error {
	path := a.cfg.SecurityContextPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating context dir: %w", err)
	}
	doc := output.RenderSecurityContext(assessments, a.now())
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing security context: %w", err)
	}
	slog.Info("wrote security context", "path", path)
	return nil
}

func newSecurityStatusCommand(a *app) *cobra.Command {
	var (
		project string
		format  string
		sortBy  string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored risk assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.status(cmd.OutOrStdout(), project, format, sortBy)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&project, "project", "p", "", "Only show this project")
	flags.StringVar(&format, "format", "table", "Output format: table, json, markdown")
	flags.StringVar(&sortBy, "sort-by", "risk", "Sort table by: risk, priority, cve, package")
	return cmd
}

func (a *app) status(w io.Writer, project, format, sortBy string) error {
	if err := a.requireBrain(); err != nil {
		return err
	}
	assessments, _, err := store.NewAssessmentStore(a.cfg.AssessmentsPath()).Load()
	if errors.Is(err, store.ErrCorrupt) {
		slog.Warn("ignoring unreadable assessment store", "err", err)
	} else if err != nil {
		return fmt.Errorf("loading assessments: %w", err)
	}
	if project != "" {
		assessments = risk.ForProject(assessments, project)
	}

	switch format {
	case "json":
		if assessments == nil {
			assessments = []types.Assessment{}
		}
		return output.WriteJSON(w, assessments)
	case "markdown":
		if project != "" {
			_, err := io.WriteString(w, output.RenderProjectSecurity(project, assessments))
			return err
		}
		_, err := io.WriteString(w, output.RenderSecurityContext(assessments, a.now()))
		return err
	case "table":
		if len(assessments) == 0 {
			fmt.Fprintln(w, "No assessments. Run `wbrain security scan` and `wbrain security assess` first.")
			return nil
		}
		return output.WriteAssessmentTable(w, assessments, output.TableConfig{
			SortBy:     sortBy,
			IsTerminal: output.IsOutputToTerminal(w),
		})
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported output format: %s", format)}
	}
}
