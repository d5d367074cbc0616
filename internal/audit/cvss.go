// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

// ScoreFromVector computes the base score of a CVSS vector. Versions 3.0,
// 3.1, and 4.0 are recognised by their prefix; anything else is tried as a
// 2.0 vector.
func ScoreFromVector(vector string) (float64, error) {
	vector = strings.TrimSpace(vector)
	switch {
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		cvss, err := gocvss40.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parsing CVSS 4.0 vector: %w", err)
		}
		return cvss.Score(), nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parsing CVSS 3.1 vector: %w", err)
		}
		return cvss.BaseScore(), nil
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parsing CVSS 3.0 vector: %w", err)
		}
		return cvss.BaseScore(), nil
	default:
		cvss, err := gocvss20.ParseVector(strings.TrimPrefix(vector, "CVSS:2.0/"))
		if err != nil {
			return 0, fmt.Errorf("parsing CVSS 2.0 vector: %w", err)
		}
		return cvss.BaseScore(), nil
	}
}

// resolveScore returns score when it is set and non-zero, otherwise the
// score derived from vector. Audit tools use 0 for "not scored".
func resolveScore(score *float64, vector string) *float64 {
	if score != nil && *score > 0 {
		s := *score
		return &s
	}
	if vector == "" {
		return nil
	}
	derived, err := ScoreFromVector(vector)
	if err != nil {
		return nil
	}
	return &derived
}

// severityLabel normalises a tool's severity label. Unknown labels become
// low. An absent label falls back to the qualitative rating of score.
func severityLabel(raw string, score *float64) string {
	if strings.TrimSpace(raw) != "" {
		if s, ok := types.NormalizeSeverity(raw); ok {
			return string(s)
		}
		return string(types.SeverityLow)
	}
	if score == nil {
		return string(types.SeverityLow)
	}
	switch {
	case *score >= 9.0:
		return string(types.SeverityCritical)
	case *score >= 7.0:
		return string(types.SeverityHigh)
	case *score >= 4.0:
		return string(types.SeverityMedium)
	default:
		return string(types.SeverityLow)
	}
}
