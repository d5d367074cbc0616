// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package risk

import (
	"math"
	"strings"

	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const (
	maxScore           = 10.0
	defaultCriticality = 0.5
	defaultFallback    = 5.0

	exploitMultiplier    = 1.5
	weaponizedMultiplier = 1.3
	pocMultiplier        = 1.1
)

// ProjectCriticality weighs a vulnerability by the kind of project it was
// found in. Types not listed weigh defaultCriticality.
var ProjectCriticality = map[types.ProjectType]float64{
	types.ProjectPythonBackend: 1.0,
	types.ProjectJavaMaven:     1.0,
	types.ProjectJavaGradle:    1.0,
	types.ProjectRust:          0.9,
	types.ProjectGo:            0.9,
	types.ProjectMobile:        0.8,
	types.ProjectNodeFrontend:  0.7,
	types.ProjectUnknown:       0.5,
}

// SeverityFallback is the base score used when an alert carries no CVSS score.
var SeverityFallback = map[types.Severity]float64{
	types.SeverityCritical: 9.0,
	types.SeverityHigh:     7.0,
	types.SeverityMedium:   5.0,
	types.SeverityLow:      3.0,
}

// Criticality returns the weight for a project type.
func Criticality(pt types.ProjectType) float64 {
	if w, ok := ProjectCriticality[pt]; ok {
		return w
	}
	return defaultCriticality
}

// BaseScore returns the alert's CVSS score, or its severity fallback, scaled
// by the project criticality weight.
func BaseScore(alert *types.Alert, criticality float64) float64 {
	var base float64
	if alert.CVSSScore != nil {
		base = *alert.CVSSScore
	} else {
		base = severityToScore(string(alert.Severity))
	}
	return base * criticality
}

func severityToScore(severity string) float64 {
	if s, ok := SeverityFallback[types.Severity(strings.ToLower(severity))]; ok {
		return s
	}
	return defaultFallback
}

// Score applies the exploit multipliers to a weighted base score and caps
// the result at 10.0.
func Score(base float64, status exploit.Info) float64 {
	score := base
	if status.Available {
		score *= exploitMultiplier
		switch status.Maturity {
		case types.MaturityWeaponized:
			score *= weaponizedMultiplier
		case types.MaturityProofOfConcept:
			score *= pocMultiplier
		}
	}
	return math.Min(score, maxScore)
}

// DeterminePriority classifies a score. The first matching tier wins.
func DeterminePriority(score float64, severity types.Severity) types.Priority {
	switch {
	case score >= 9.0 || severity == types.SeverityCritical:
		return types.PriorityCritical
	case score >= 7.0 || severity == types.SeverityHigh:
		return types.PriorityHigh
	case score >= 5.0 || severity == types.SeverityMedium:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

// DetermineAction picks the recommended urgency.
func DetermineAction(priority types.Priority, score float64, exploitAvailable bool) types.Action {
	switch {
	case priority == types.PriorityCritical || (score >= 8.0 && exploitAvailable):
		return types.ActionFixNow
	case priority == types.PriorityHigh || score >= 7.0:
		return types.ActionFixSoon
	default:
		return types.ActionMonitor
	}
}
