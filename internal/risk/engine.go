// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package risk scores vulnerability alerts and classifies them into
// priorities and recommended actions.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const defaultLookupTimeout = 10 * time.Second

// Engine produces one Assessment per Alert.
type Engine struct {
	lookup        exploit.Lookup
	lookupTimeout time.Duration
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for AssessedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLookupTimeout bounds each exploit-intelligence call.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

// New creates an Engine. lookup may be nil to disable external exploit
// intelligence.
func New(lookup exploit.Lookup, opts ...Option) *Engine {
	e := &Engine{
		lookup:        lookup,
		lookupTimeout: defaultLookupTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AssessAll assesses every alert and returns the results ordered by
// descending risk score. Alerts with equal scores keep their input order.
func (e *Engine) AssessAll(ctx context.Context, alerts []types.Alert) []types.Assessment {
	out := make([]types.Assessment, len(alerts))
	for i := range alerts {
		out[i] = e.Assess(ctx, alerts[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}

// Assess scores a single alert.
func (e *Engine) Assess(ctx context.Context, alert types.Alert) types.Assessment {
	criticality := Criticality(alert.ProjectType)
	status := e.exploitStatus(ctx, &alert)

	score := Score(BaseScore(&alert, criticality), status)
	priority := DeterminePriority(score, alert.Severity)
	action := DetermineAction(priority, score, status.Available)

	impact := impactAnalysis(&alert)
	fix := recommendedFix(&alert)

	return types.Assessment{
		Alert:          alert,
		Priority:       priority,
		Action:         action,
		RiskScore:      score,
		Reasoning:      reasoning(&alert, score, status, criticality),
		ImpactAnalysis: &impact,
		RecommendedFix: &fix,
		AssessedAt:     e.now(),
	}
}

// exploitStatus prefers what the alert already states and otherwise asks the
// configured lookup. Any failure is treated as no exploit.
func (e *Engine) exploitStatus(ctx context.Context, alert *types.Alert) exploit.Info {
	status := exploit.Info{Available: alert.ExploitAvailable}
	if alert.ExploitMaturity != nil {
		status.Maturity = *alert.ExploitMaturity
	}
	if alert.ExploitAvailable || alert.CVEID == nil || e.lookup == nil {
		return status
	}

	info, err := e.lookupCVE(ctx, *alert.CVEID)
	if err != nil {
		slog.Debug("no exploit data", "cve", *alert.CVEID, "err", err)
		return status
	}
	if info != nil {
		status = *info
	}
	return status
}

func (e *Engine) lookupCVE(ctx context.Context, cveID string) (info *exploit.Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("exploit lookup panicked: %v", r)
		}
	}()
	if e.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()
	}
	return e.lookup.Lookup(ctx, cveID)
}
