// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

var fixedNow = time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)

func newTestEngine(lookup exploit.Lookup, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(lookup, opts...)
}

func TestAssess_CriticalBackend(t *testing.T) {
	// critical, CVSS 9.8, python-be (1.0), no exploit -> 9.8, CRITICAL, FIX_NOW
	a := makeAlert(t, "django", "critical", floatPtr(9.8), types.ProjectPythonBackend, withFix("4.2.1"))
	got := newTestEngine(nil).Assess(context.Background(), a)

	assert.InDelta(t, 9.8, got.RiskScore, 1e-9)
	assert.Equal(t, types.PriorityCritical, got.Priority)
	assert.Equal(t, types.ActionFixNow, got.Action)
	assert.Equal(t, "Risk score of 9.8/10.0 based on CVSS 9.8. "+
		"high project criticality (backend/production system). "+
		"no known exploit at this time. "+
		"fixed version available: 4.2.1.", got.Reasoning)
	require.NotNil(t, got.ImpactAnalysis)
	assert.Equal(t, "Critical severity vulnerability affects backend API endpoints.", *got.ImpactAnalysis)
	require.NotNil(t, got.RecommendedFix)
	assert.Equal(t, "Update django from 1.0.0 to 4.2.1", *got.RecommendedFix)
	assert.Equal(t, fixedNow, got.AssessedAt)
	assert.Equal(t, a, got.Alert)
}

func TestAssess_WeaponizedFrontendIsCapped(t *testing.T) {
	// 7.5 * 0.7 = 5.25, * 1.5 = 7.875, * 1.3 = 10.2375 -> 10.0
	a := makeAlert(t, "lodash", "high", floatPtr(7.5), types.ProjectNodeFrontend, withExploit("weaponized"))
	got := newTestEngine(nil).Assess(context.Background(), a)

	assert.InDelta(t, 10.0, got.RiskScore, 1e-9)
	assert.Equal(t, types.PriorityCritical, got.Priority)
	assert.Equal(t, types.ActionFixNow, got.Action)
	assert.Equal(t, "Risk score of 10.0/10.0 based on CVSS 7.5. "+
		"moderate project criticality. "+
		"weaponized exploit available in the wild.", got.Reasoning)
	assert.Equal(t, "High severity vulnerability affects frontend application.", *got.ImpactAnalysis)
	assert.Equal(t, "Review lodash 1.0.0 for security updates", *got.RecommendedFix)
}

func TestAssess_ProofOfConcept(t *testing.T) {
	// 5.0 * 0.9 = 4.5, * 1.5 = 6.75, * 1.1 = 7.425 -> HIGH, FIX_SOON
	a := makeAlert(t, "serde", "medium", floatPtr(5.0), types.ProjectGo, withExploit("proof-of-concept"))
	got := newTestEngine(nil).Assess(context.Background(), a)

	assert.InDelta(t, 7.425, got.RiskScore, 1e-9)
	assert.Equal(t, types.PriorityHigh, got.Priority)
	assert.Equal(t, types.ActionFixSoon, got.Action)
	assert.Contains(t, got.Reasoning, "proof-of-concept exploit available")
}

func TestAssess_ExploitPushesHighToFixNow(t *testing.T) {
	// 5.5 * 1.0 * 1.5 = 8.25 -> HIGH, but >= 8 with exploit -> FIX_NOW
	a := makeAlert(t, "flask", "medium", floatPtr(5.5), types.ProjectPythonBackend, withExploit(""))
	got := newTestEngine(nil).Assess(context.Background(), a)

	assert.InDelta(t, 8.25, got.RiskScore, 1e-9)
	assert.Equal(t, types.PriorityHigh, got.Priority)
	assert.Equal(t, types.ActionFixNow, got.Action)
	assert.Contains(t, got.Reasoning, ". exploit available.")
}

func TestAssess_LowUnknownProject(t *testing.T) {
	// fallback 3.0 * 0.5 = 1.5
	a := makeAlert(t, "leftpad", "low", nil, "")
	got := newTestEngine(nil).Assess(context.Background(), a)

	assert.InDelta(t, 1.5, got.RiskScore, 1e-9)
	assert.Equal(t, types.PriorityLow, got.Priority)
	assert.Equal(t, types.ActionMonitor, got.Action)
	assert.Equal(t, "Risk score of 1.5/10.0 based on CVSS N/A. no known exploit at this time.", got.Reasoning)
	assert.Equal(t, "standard dependency vulnerability.", *got.ImpactAnalysis)
}

func TestAssess_SecuritySensitivePackage(t *testing.T) {
	for _, pkg := range []string{"OAuthLib", "spring-security-core"} {
		a := makeAlert(t, pkg, "low", nil, types.ProjectRust)
		got := newTestEngine(nil).Assess(context.Background(), a)
		assert.Equal(t, "security-sensitive package.", *got.ImpactAnalysis, pkg)
	}
}

func TestAssess_LookupResultIsUsed(t *testing.T) {
	// fallback 7.0 * 0.8 = 5.6, * 1.5 * 1.3 = 10.92 -> 10.0
	var asked string
	lookup := exploit.Func(func(_ context.Context, cve string) (*exploit.Info, error) {
		asked = cve
		return &exploit.Info{Available: true, Maturity: "weaponized"}, nil
	})
	a := makeAlert(t, "okhttp", "high", nil, types.ProjectMobile, withCVE("CVE-2024-1234"))
	got := newTestEngine(lookup).Assess(context.Background(), a)

	assert.Equal(t, "CVE-2024-1234", asked)
	assert.InDelta(t, 10.0, got.RiskScore, 1e-9)
	assert.Equal(t, types.ActionFixNow, got.Action)
}

func TestAssess_LookupSkipped(t *testing.T) {
	var calls int
	lookup := exploit.Func(func(context.Context, string) (*exploit.Info, error) {
		calls++
		return &exploit.Info{Available: true}, nil
	})
	e := newTestEngine(lookup)

	// No CVE id.
	e.Assess(context.Background(), makeAlert(t, "pkg", "low", nil, types.ProjectGo))
	// Exploit already known from the alert.
	e.Assess(context.Background(), makeAlert(t, "pkg", "low", nil, types.ProjectGo,
		withCVE("CVE-2024-1"), withExploit("weaponized")))

	assert.Zero(t, calls)
}

func TestAssess_LookupFailuresDegrade(t *testing.T) {
	tests := []struct {
		name   string
		lookup exploit.Lookup
	}{
		{"error", exploit.Func(func(context.Context, string) (*exploit.Info, error) {
			return nil, errors.New("connection refused")
		})},
		{"no data", exploit.Func(func(context.Context, string) (*exploit.Info, error) {
			return nil, nil
		})},
		{"panic", exploit.Func(func(context.Context, string) (*exploit.Info, error) {
			panic("bad response")
		})},
		{"timeout", exploit.Func(func(ctx context.Context, _ string) (*exploit.Info, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.lookup, WithLookupTimeout(10*time.Millisecond))
			a := makeAlert(t, "pkg", "medium", floatPtr(6.0), types.ProjectPythonBackend, withCVE("CVE-2024-1"))
			got := e.Assess(context.Background(), a)

			assert.InDelta(t, 6.0, got.RiskScore, 1e-9)
			assert.Equal(t, types.PriorityMedium, got.Priority)
			assert.Equal(t, types.ActionMonitor, got.Action)
			assert.Contains(t, got.Reasoning, "no known exploit at this time")
		})
	}
}

func TestAssess_Deterministic(t *testing.T) {
	lookup := exploit.Func(func(context.Context, string) (*exploit.Info, error) {
		return &exploit.Info{Available: true, Maturity: "proof-of-concept"}, nil
	})
	e := newTestEngine(lookup)
	a := makeAlert(t, "pkg", "high", floatPtr(6.1), types.ProjectRust, withCVE("CVE-2024-1"))

	first := e.Assess(context.Background(), a)
	second := e.Assess(context.Background(), a)
	assert.Equal(t, first, second)
}

func TestAssess_ScoreAlwaysInRange(t *testing.T) {
	severities := []string{"critical", "high", "medium", "low"}
	projectTypes := []types.ProjectType{
		types.ProjectPythonBackend, types.ProjectNodeFrontend, types.ProjectMobile,
		types.ProjectRust, types.ProjectGo, types.ProjectJavaMaven, types.ProjectJavaGradle,
		types.ProjectUnknown, "other",
	}
	scores := []*float64{nil, floatPtr(0), floatPtr(3.3), floatPtr(6.9), floatPtr(9.99), floatPtr(10)}
	maturities := []func(*types.AlertParams){
		func(*types.AlertParams) {},
		withExploit(""),
		withExploit("proof-of-concept"),
		withExploit("weaponized"),
	}

	e := newTestEngine(nil)
	for _, sev := range severities {
		for _, pt := range projectTypes {
			for _, s := range scores {
				for _, m := range maturities {
					got := e.Assess(context.Background(), makeAlert(t, "pkg", sev, s, pt, m))
					assert.GreaterOrEqual(t, got.RiskScore, 0.0)
					assert.LessOrEqual(t, got.RiskScore, 10.0)
				}
			}
		}
	}
}

func TestAssessAll_SortedAndStable(t *testing.T) {
	alerts := []types.Alert{
		makeAlert(t, "a-low", "low", floatPtr(2.0), types.ProjectPythonBackend),
		makeAlert(t, "b-tie", "medium", floatPtr(5.0), types.ProjectPythonBackend),
		makeAlert(t, "c-top", "critical", floatPtr(9.8), types.ProjectPythonBackend),
		makeAlert(t, "d-tie", "medium", floatPtr(5.0), types.ProjectPythonBackend),
		makeAlert(t, "e-tie", "high", floatPtr(10.0), types.ProjectUnknown),
	}
	got := newTestEngine(nil).AssessAll(context.Background(), alerts)

	require.Len(t, got, len(alerts))
	var names []string
	for _, a := range got {
		names = append(names, a.Alert.PackageName)
	}
	assert.Equal(t, []string{"c-top", "b-tie", "d-tie", "e-tie", "a-low"}, names)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].RiskScore, got[i].RiskScore)
	}
}

func TestAssessAll_Empty(t *testing.T) {
	got := newTestEngine(nil).AssessAll(context.Background(), nil)
	assert.Empty(t, got)
}

func TestSummarize(t *testing.T) {
	alerts := []types.Alert{
		makeAlert(t, "a", "critical", floatPtr(9.8), types.ProjectPythonBackend),
		makeAlert(t, "b", "high", floatPtr(7.5), types.ProjectPythonBackend),
		makeAlert(t, "c", "low", nil, types.ProjectUnknown),
	}
	s := Summarize(newTestEngine(nil).AssessAll(context.Background(), alerts))

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByPriority[types.PriorityCritical])
	assert.Equal(t, 1, s.ByPriority[types.PriorityHigh])
	assert.Equal(t, 1, s.ByPriority[types.PriorityLow])
	assert.Equal(t, 1, s.ByAction[types.ActionFixNow])
	assert.Equal(t, 1, s.ByAction[types.ActionFixSoon])
	assert.Equal(t, 1, s.ByAction[types.ActionMonitor])

	assert.True(t, s.AtLeast(types.PriorityCritical))
	assert.True(t, s.AtLeast(types.PriorityHigh))
}

func TestSummary_AtLeast(t *testing.T) {
	s := Summary{ByPriority: map[types.Priority]int{types.PriorityMedium: 2}}
	assert.False(t, s.AtLeast(types.PriorityCritical))
	assert.False(t, s.AtLeast(types.PriorityHigh))
	assert.True(t, s.AtLeast(types.PriorityMedium))
	assert.True(t, s.AtLeast(types.PriorityLow))
}

func TestForProject(t *testing.T) {
	as := []types.Assessment{
		{Alert: types.Alert{ProjectName: "api"}},
		{Alert: types.Alert{ProjectName: "web"}},
		{Alert: types.Alert{ProjectName: "api"}},
	}
	assert.Len(t, ForProject(as, "api"), 2)
	assert.Empty(t, ForProject(as, "mobile"))
}
