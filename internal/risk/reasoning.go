// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package risk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

// reasoning explains the score in a few fixed clauses.
func reasoning(alert *types.Alert, score float64, status exploit.Info, criticality float64) string {
	parts := []string{
		fmt.Sprintf("Risk score of %.1f/10.0 based on CVSS %s", score, formatCVSS(alert.CVSSScore)),
	}

	switch {
	case criticality >= 0.9:
		parts = append(parts, "high project criticality (backend/production system)")
	case criticality >= 0.7:
		parts = append(parts, "moderate project criticality")
	}

	switch {
	case !status.Available:
		parts = append(parts, "no known exploit at this time")
	case status.Maturity == types.MaturityWeaponized:
		parts = append(parts, "weaponized exploit available in the wild")
	case status.Maturity == types.MaturityProofOfConcept:
		parts = append(parts, "proof-of-concept exploit available")
	default:
		parts = append(parts, "exploit available")
	}

	if alert.FixedVersion != nil {
		parts = append(parts, "fixed version available: "+*alert.FixedVersion)
	}

	return strings.Join(parts, ". ") + "."
}

// formatCVSS prints the score with at least one decimal ("7.0", "9.8").
// Absent and zero scores print as N/A.
func formatCVSS(score *float64) string {
	if score == nil || *score == 0 {
		return "N/A"
	}
	s := strconv.FormatFloat(*score, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func impactAnalysis(alert *types.Alert) string {
	var parts []string

	switch alert.Severity {
	case types.SeverityCritical:
		parts = append(parts, "Critical severity vulnerability")
	case types.SeverityHigh:
		parts = append(parts, "High severity vulnerability")
	}

	switch alert.ProjectType {
	case types.ProjectPythonBackend:
		parts = append(parts, "affects backend API endpoints")
	case types.ProjectNodeFrontend:
		parts = append(parts, "affects frontend application")
	}

	if isSecuritySensitive(alert.PackageName) {
		parts = append(parts, "security-sensitive package")
	}

	if len(parts) == 0 {
		parts = append(parts, "standard dependency vulnerability")
	}
	return strings.Join(parts, " ") + "."
}

func isSecuritySensitive(pkg string) bool {
	name := strings.ToLower(pkg)
	return strings.Contains(name, "auth") || strings.Contains(name, "security")
}

func recommendedFix(alert *types.Alert) string {
	if alert.FixedVersion != nil {
		return fmt.Sprintf("Update %s from %s to %s", alert.PackageName, alert.PackageVersion, *alert.FixedVersion)
	}
	return fmt.Sprintf("Review %s %s for security updates", alert.PackageName, alert.PackageVersion)
}
