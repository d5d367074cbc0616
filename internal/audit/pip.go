// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

// pip-audit emits {"dependencies": [{name, version, vulns: [...]}]}. A flat
// {"vulnerabilities": [...]} layout with per-record package data is also
// accepted.
type pipReport struct {
	Dependencies    []json.RawMessage `json:"dependencies"`
	Vulnerabilities []json.RawMessage `json:"vulnerabilities"`
}

type pipDependency struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Vulns   []json.RawMessage `json:"vulns"`
}

type pipVulnerability struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	InstalledVersion string   `json:"installed_version"`
	FixVersions      []string `json:"fix_versions"`
	Aliases          []string `json:"aliases"`
	Description      string   `json:"description"`
	Severity         string   `json:"severity"`
	CVSS             *struct {
		Score  *float64 `json:"score"`
		Vector string   `json:"vector"`
	} `json:"cvss"`
}

func parsePip(data []byte, project manifest.Project) ([]*types.Alert, error) {
	var report pipReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing pip-audit JSON: %w", err)
	}

	var alerts []*types.Alert
	add := func(raw json.RawMessage, name, version string) {
		var v pipVulnerability
		if err := json.Unmarshal(raw, &v); err != nil {
			slog.Debug("skipping malformed pip-audit record", "package", name, "err", err)
			return
		}
		if v.Name == "" {
			v.Name = name
		}
		if v.InstalledVersion == "" {
			v.InstalledVersion = version
		}
		if alert := build(project, v.params()); alert != nil {
			alerts = append(alerts, alert)
		}
	}

	for _, raw := range report.Dependencies {
		var dep pipDependency
		if err := json.Unmarshal(raw, &dep); err != nil {
			slog.Debug("skipping malformed pip-audit dependency", "err", err)
			continue
		}
		for _, vuln := range dep.Vulns {
			add(vuln, dep.Name, dep.Version)
		}
	}
	for _, raw := range report.Vulnerabilities {
		add(raw, "", "")
	}
	return alerts, nil
}

func (v pipVulnerability) params() types.AlertParams {
	var score *float64
	var vector string
	if v.CVSS != nil {
		vector = v.CVSS.Vector
		score = resolveScore(v.CVSS.Score, vector)
	}
	p := types.AlertParams{
		CVEID:          v.cveID(),
		PackageName:    orUnknown(v.Name),
		PackageVersion: orUnknown(v.InstalledVersion),
		Severity:       severityLabel(v.Severity, score),
		CVSSScore:      score,
		CVSSVector:     vector,
		Description:    v.Description,
		Source:         types.SourcePipAudit,
	}
	if len(v.FixVersions) > 0 {
		p.FixedVersion = v.FixVersions[0]
	}
	return p
}

// cveID prefers a CVE alias over PYSEC or GHSA identifiers.
func (v pipVulnerability) cveID() string {
	if strings.HasPrefix(v.ID, "CVE-") {
		return v.ID
	}
	for _, alias := range v.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	return v.ID
}
