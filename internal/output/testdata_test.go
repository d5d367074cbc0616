// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

var assessedAt = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func makeAssessment(t *testing.T, project, pkg, cve string, priority types.Priority, action types.Action, risk float64) types.Assessment {
	t.Helper()
	alert, err := types.NewAlert(types.AlertParams{
		CVEID:          cve,
		PackageName:    pkg,
		PackageVersion: "1.0.0",
		FixedVersion:   "1.0.1",
		Severity:       "high",
		CVSSScore:      floatPtr(7.5),
		Description:    "Prototype pollution in " + pkg,
		AdvisoryURL:    "https://example.test/" + pkg,
		Source:         types.SourceNPMAudit,
		ProjectName:    project,
		ProjectType:    types.ProjectNodeFrontend,
		DetectedAt:     assessedAt,
	})
	require.NoError(t, err)
	return types.Assessment{
		Alert:          *alert,
		Priority:       priority,
		Action:         action,
		RiskScore:      risk,
		Reasoning:      "CVSS 7.5 in node-fe project",
		ImpactAnalysis: strPtr("Client-side exposure"),
		RecommendedFix: strPtr("Upgrade " + pkg + " to 1.0.1"),
		AssessedAt:     assessedAt,
	}
}
