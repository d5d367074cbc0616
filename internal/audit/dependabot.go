// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const remoteTimeout = 2 * time.Second

// RemoteFunc returns the origin remote URL of the repository in dir.
type RemoteFunc func(ctx context.Context, dir string) (string, error)

// Dependabot lists open Dependabot alerts for a project's GitHub repository.
type Dependabot struct {
	client *github.Client
	remote RemoteFunc
}

// DependabotOption configures a Dependabot source.
type DependabotOption func(*Dependabot)

// WithGitHubClient replaces the API client, for example to target a test
// server or GitHub Enterprise.
func WithGitHubClient(c *github.Client) DependabotOption {
	return func(d *Dependabot) { d.client = c }
}

// WithRemote replaces git remote detection.
func WithRemote(fn RemoteFunc) DependabotOption {
	return func(d *Dependabot) { d.remote = fn }
}

// NewDependabot authenticates with token. An empty token returns nil.
func NewDependabot(token string, opts ...DependabotOption) *Dependabot {
	if token == "" {
		return nil
	}
	d := &Dependabot{
		client: github.NewClient(&http.Client{Timeout: 30 * time.Second}).WithAuthToken(token),
		remote: gitRemote,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Alerts returns the project's open alerts. Projects without a GitHub
// origin, repositories with Dependabot disabled, and API failures yield no
// alerts.
func (d *Dependabot) Alerts(ctx context.Context, project manifest.Project) []*types.Alert {
	if d == nil {
		return nil
	}
	remote, err := d.remote(ctx, project.Path)
	if err != nil {
		slog.Debug("no git remote", "project", project.Name, "err", err)
		return nil
	}
	owner, repo, ok := ParseGitHubRemote(remote)
	if !ok {
		return nil
	}

	raw, err := d.list(ctx, owner, repo)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			slog.Debug("dependabot not enabled", "repo", owner+"/"+repo)
			return nil
		}
		slog.Debug("listing dependabot alerts failed", "repo", owner+"/"+repo, "err", err)
		return nil
	}

	alerts := make([]*types.Alert, 0, len(raw))
	for _, a := range raw {
		if alert := build(project, dependabotParams(a)); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func (d *Dependabot) list(ctx context.Context, owner, repo string) ([]*github.DependabotAlert, error) {
	opts := &github.ListAlertsOptions{State: github.String("open")}
	opts.ListCursorOptions.PerPage = 100

	var all []*github.DependabotAlert
	for {
		page, resp, err := d.client.Dependabot.ListRepoAlerts(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing alerts for %s/%s: %w", owner, repo, err)
		}
		all = append(all, page...)
		if resp == nil || resp.After == "" {
			return all, nil
		}
		opts.ListCursorOptions.After = resp.After
	}
}

func dependabotParams(a *github.DependabotAlert) types.AlertParams {
	advisory := a.GetSecurityAdvisory()
	vuln := a.GetSecurityVulnerability()

	cvss := advisory.GetCVSS()
	vector := cvss.GetVectorString()
	var raw *float64
	if cvss != nil {
		raw = cvss.Score
	}
	score := resolveScore(raw, vector)

	version := vuln.GetVulnerableVersionRange()
	if version == "" {
		version = a.GetDependency().GetPackage().GetEcosystem()
	}

	return types.AlertParams{
		CVEID:          advisory.GetCVEID(),
		PackageName:    orUnknown(a.GetDependency().GetPackage().GetName()),
		PackageVersion: orUnknown(version),
		FixedVersion:   vuln.GetFirstPatchedVersion().GetIdentifier(),
		Severity:       severityLabel(advisory.GetSeverity(), score),
		CVSSScore:      score,
		CVSSVector:     vector,
		Description:    advisory.GetSummary(),
		Source:         types.SourceDependabot,
		AdvisoryURL:    a.GetHTMLURL(),
	}
}

// ParseGitHubRemote extracts owner and repository from an SSH or HTTPS
// GitHub remote URL.
func ParseGitHubRemote(remote string) (owner, repo string, ok bool) {
	remote = strings.TrimSpace(remote)
	var path string
	switch {
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	case strings.Contains(remote, "github.com/"):
		path = remote[strings.Index(remote, "github.com/")+len("github.com/"):]
	default:
		return "", "", false
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func gitRemote(ctx context.Context, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("reading origin remote: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
