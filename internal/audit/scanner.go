// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"log/slog"
	"os"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

// Source produces alerts for one project.
type Source interface {
	Alerts(ctx context.Context, project manifest.Project) []*types.Alert
}

// Scanner collects alerts from every source for every project.
type Scanner struct {
	sources []Source
}

// NewScanner combines sources. Nil sources are ignored.
func NewScanner(sources ...Source) *Scanner {
	s := &Scanner{}
	for _, src := range sources {
		if src == nil {
			continue
		}
		if d, ok := src.(*Dependabot); ok && d == nil {
			continue
		}
		s.sources = append(s.sources, src)
	}
	return s
}

// ScanAll scans projects in order. Projects whose directory is missing are
// skipped. The only error is cancellation of ctx.
func (s *Scanner) ScanAll(ctx context.Context, projects []manifest.Project) ([]*types.Alert, error) {
	var alerts []*types.Alert
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return alerts, err
		}
		if info, err := os.Stat(project.Path); err != nil || !info.IsDir() {
			slog.Debug("skipping project without directory", "project", project.Name, "path", project.Path)
			continue
		}
		for _, src := range s.sources {
			alerts = append(alerts, src.Alerts(ctx, project)...)
		}
	}
	return alerts, nil
}
