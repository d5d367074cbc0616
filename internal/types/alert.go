// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidAlert is wrapped by every error returned from NewAlert.
var ErrInvalidAlert = errors.New("invalid alert")

// Severity is the normalised severity vocabulary shared by all sources.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// NormalizeSeverity maps a source-specific severity label onto Severity.
// "moderate" (npm, GitHub) is treated as medium. The second return value is
// false for labels outside the known vocabulary.
func NormalizeSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium", "moderate":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	default:
		return "", false
	}
}

// Source identifies the tool or API an alert came from.
type Source string

const (
	SourceDependabot Source = "dependabot"
	SourceNPMAudit   Source = "npm-audit"
	SourcePipAudit   Source = "pip-audit"
	SourceCargoAudit Source = "cargo-audit"
)

func (s Source) valid() bool {
	switch s {
	case SourceDependabot, SourceNPMAudit, SourcePipAudit, SourceCargoAudit:
		return true
	}
	return false
}

// ProjectType is the kind of project detected in the workspace. The set is
// open: values outside the constants below are accepted and scored as unknown.
type ProjectType string

const (
	ProjectPythonBackend ProjectType = "python-be"
	ProjectNodeFrontend  ProjectType = "node-fe"
	ProjectMobile        ProjectType = "mobile"
	ProjectRust          ProjectType = "rust"
	ProjectGo            ProjectType = "go"
	ProjectJavaMaven     ProjectType = "java-maven"
	ProjectJavaGradle    ProjectType = "java-gradle"
	ProjectUnknown       ProjectType = "unknown"
)

// Exploit maturity labels.
const (
	MaturityProofOfConcept = "proof-of-concept"
	MaturityWeaponized     = "weaponized"
	MaturityNone           = "none"
)

// Alert is one reported vulnerability against one package in one project.
// Build it with NewAlert; the scoring code assumes every Alert it sees has
// passed validation.
type Alert struct {
	CVEID            *string     `json:"cve_id" yaml:"cve_id"`
	PackageName      string      `json:"package_name" yaml:"package_name"`
	PackageVersion   string      `json:"package_version" yaml:"package_version"`
	FixedVersion     *string     `json:"fixed_version" yaml:"fixed_version"`
	Severity         Severity    `json:"severity" yaml:"severity"`
	CVSSScore        *float64    `json:"cvss_score" yaml:"cvss_score"`
	CVSSVector       *string     `json:"cvss_vector" yaml:"cvss_vector"`
	Description      *string     `json:"description" yaml:"description"`
	Source           Source      `json:"source" yaml:"source"`
	ProjectName      string      `json:"project_name" yaml:"project_name"`
	ProjectType      ProjectType `json:"project_type" yaml:"project_type"`
	DetectedAt       time.Time   `json:"detected_at" yaml:"detected_at"`
	ExploitAvailable bool        `json:"exploit_available" yaml:"exploit_available"`
	ExploitMaturity  *string     `json:"exploit_maturity" yaml:"exploit_maturity"`
	AdvisoryURL      *string     `json:"advisory_url" yaml:"advisory_url"`
}

// AlertParams carries the raw values an adapter collected. Optional string
// fields use "" for absent; CVSSScore uses nil.
type AlertParams struct {
	CVEID            string
	PackageName      string
	PackageVersion   string
	FixedVersion     string
	Severity         string
	CVSSScore        *float64
	CVSSVector       string
	Description      string
	Source           Source
	ProjectName      string
	ProjectType      ProjectType
	DetectedAt       time.Time
	ExploitAvailable bool
	ExploitMaturity  string
	AdvisoryURL      string
}

// NewAlert validates p and returns the corresponding Alert.
func NewAlert(p AlertParams) (*Alert, error) {
	if strings.TrimSpace(p.PackageName) == "" {
		return nil, fmt.Errorf("%w: package name is required", ErrInvalidAlert)
	}
	if strings.TrimSpace(p.PackageVersion) == "" {
		return nil, fmt.Errorf("%w: installed version of %s is required", ErrInvalidAlert, p.PackageName)
	}
	if strings.TrimSpace(p.ProjectName) == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidAlert)
	}
	if !p.Source.valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidAlert, p.Source)
	}
	severity, ok := NormalizeSeverity(p.Severity)
	if !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, p.Severity)
	}

	var score *float64
	if p.CVSSScore != nil {
		v := *p.CVSSScore
		if math.IsNaN(v) || v < 0 || v > 10 {
			return nil, fmt.Errorf("%w: CVSS score %v out of range [0, 10]", ErrInvalidAlert, v)
		}
		score = &v
	}

	switch p.ExploitMaturity {
	case "", MaturityProofOfConcept, MaturityWeaponized, MaturityNone:
	default:
		return nil, fmt.Errorf("%w: unknown exploit maturity %q", ErrInvalidAlert, p.ExploitMaturity)
	}

	projectType := p.ProjectType
	if projectType == "" {
		projectType = ProjectUnknown
	}
	detectedAt := p.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	return &Alert{
		CVEID:            optional(p.CVEID),
		PackageName:      p.PackageName,
		PackageVersion:   p.PackageVersion,
		FixedVersion:     optional(p.FixedVersion),
		Severity:         severity,
		CVSSScore:        score,
		CVSSVector:       optional(p.CVSSVector),
		Description:      optional(p.Description),
		Source:           p.Source,
		ProjectName:      p.ProjectName,
		ProjectType:      projectType,
		DetectedAt:       detectedAt,
		ExploitAvailable: p.ExploitAvailable,
		ExploitMaturity:  optional(p.ExploitMaturity),
		AdvisoryURL:      optional(p.AdvisoryURL),
	}, nil
}

// Params returns the construction parameters for a, so a decoded record can
// be re-validated through NewAlert.
func (a *Alert) Params() AlertParams {
	return AlertParams{
		CVEID:            deref(a.CVEID),
		PackageName:      a.PackageName,
		PackageVersion:   a.PackageVersion,
		FixedVersion:     deref(a.FixedVersion),
		Severity:         string(a.Severity),
		CVSSScore:        a.CVSSScore,
		CVSSVector:       deref(a.CVSSVector),
		Description:      deref(a.Description),
		Source:           a.Source,
		ProjectName:      a.ProjectName,
		ProjectType:      a.ProjectType,
		DetectedAt:       a.DetectedAt,
		ExploitAvailable: a.ExploitAvailable,
		ExploitMaturity:  deref(a.ExploitMaturity),
		AdvisoryURL:      deref(a.AdvisoryURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
