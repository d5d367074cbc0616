// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package store persists scanned alerts and their assessments as YAML files
// in the brain's SECURITY directory.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

// ErrCorrupt marks a document that could not be decoded.
var ErrCorrupt = errors.New("corrupt security store")

type alertRecord struct {
	CVEID            string   `yaml:"cve_id,omitempty"`
	PackageName      string   `yaml:"package_name"`
	PackageVersion   string   `yaml:"package_version"`
	FixedVersion     string   `yaml:"fixed_version,omitempty"`
	Severity         string   `yaml:"severity"`
	CVSSScore        *float64 `yaml:"cvss_score,omitempty"`
	CVSSVector       string   `yaml:"cvss_vector,omitempty"`
	Description      string   `yaml:"description,omitempty"`
	Source           string   `yaml:"source"`
	ProjectName      string   `yaml:"project_name"`
	ProjectType      string   `yaml:"project_type"`
	DetectedAt       string   `yaml:"detected_at"`
	ExploitAvailable bool     `yaml:"exploit_available"`
	ExploitMaturity  string   `yaml:"exploit_maturity,omitempty"`
	AdvisoryURL      string   `yaml:"advisory_url,omitempty"`
}

func recordOf(a *types.Alert) alertRecord {
	p := a.Params()
	return alertRecord{
		CVEID:            p.CVEID,
		PackageName:      p.PackageName,
		PackageVersion:   p.PackageVersion,
		FixedVersion:     p.FixedVersion,
		Severity:         p.Severity,
		CVSSScore:        p.CVSSScore,
		CVSSVector:       p.CVSSVector,
		Description:      p.Description,
		Source:           string(p.Source),
		ProjectName:      p.ProjectName,
		ProjectType:      string(p.ProjectType),
		DetectedAt:       types.FormatTimestamp(p.DetectedAt),
		ExploitAvailable: p.ExploitAvailable,
		ExploitMaturity:  p.ExploitMaturity,
		AdvisoryURL:      p.AdvisoryURL,
	}
}

// alert re-validates the record through types.NewAlert.
func (r alertRecord) alert() (*types.Alert, error) {
	var detected time.Time
	if r.DetectedAt != "" {
		t, err := types.ParseTimestamp(r.DetectedAt)
		if err != nil {
			return nil, err
		}
		detected = t
	}
	return types.NewAlert(types.AlertParams{
		CVEID:            r.CVEID,
		PackageName:      r.PackageName,
		PackageVersion:   r.PackageVersion,
		FixedVersion:     r.FixedVersion,
		Severity:         r.Severity,
		CVSSScore:        r.CVSSScore,
		CVSSVector:       r.CVSSVector,
		Description:      r.Description,
		Source:           types.Source(r.Source),
		ProjectName:      r.ProjectName,
		ProjectType:      types.ProjectType(r.ProjectType),
		DetectedAt:       detected,
		ExploitAvailable: r.ExploitAvailable,
		ExploitMaturity:  r.ExploitMaturity,
		AdvisoryURL:      r.AdvisoryURL,
	})
}

// readDocument decodes the YAML file at path into doc. The bool result is
// false when the file does not exist.
func readDocument(path string, doc any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

func writeDocument(path string, doc any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating security dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func parseLastUpdated(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := types.ParseTimestamp(s)
	if err != nil {
		slog.Debug("ignoring unreadable last_updated", "value", s)
		return time.Time{}
	}
	return t
}
