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

type cargoReport struct {
	Vulnerabilities struct {
		List []json.RawMessage `json:"list"`
	} `json:"vulnerabilities"`
}

type cargoVulnerability struct {
	Advisory struct {
		ID       string          `json:"id"`
		Title    string          `json:"title"`
		Aliases  []string        `json:"aliases"`
		Severity string          `json:"severity"`
		URL      string          `json:"url"`
		CVSS     json.RawMessage `json:"cvss"`
	} `json:"advisory"`
	Package struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"package"`
	Versions struct {
		Patched []string `json:"patched"`
	} `json:"versions"`
}

func parseCargo(data []byte, project manifest.Project) ([]*types.Alert, error) {
	var report cargoReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing cargo audit JSON: %w", err)
	}

	var alerts []*types.Alert
	for _, raw := range report.Vulnerabilities.List {
		var v cargoVulnerability
		if err := json.Unmarshal(raw, &v); err != nil {
			slog.Debug("skipping malformed cargo audit record", "err", err)
			continue
		}
		if alert := build(project, v.params()); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (v cargoVulnerability) params() types.AlertParams {
	score, vector := v.cvss()
	p := types.AlertParams{
		CVEID:          v.cveID(),
		PackageName:    orUnknown(v.Package.Name),
		PackageVersion: orUnknown(v.Package.Version),
		Severity:       severityLabel(v.Advisory.Severity, score),
		CVSSScore:      score,
		CVSSVector:     vector,
		Description:    v.Advisory.Title,
		Source:         types.SourceCargoAudit,
		AdvisoryURL:    v.Advisory.URL,
	}
	if len(v.Versions.Patched) > 0 {
		p.FixedVersion = v.Versions.Patched[0]
	}
	return p
}

// cvss reads advisory.cvss, which RustSec publishes as a vector string.
// A bare number is taken as the score.
func (v cargoVulnerability) cvss() (*float64, string) {
	raw := v.Advisory.CVSS
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ""
	}
	var vector string
	if err := json.Unmarshal(raw, &vector); err == nil {
		return resolveScore(nil, vector), vector
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err == nil {
		return resolveScore(&score, ""), ""
	}
	return nil, ""
}

func (v cargoVulnerability) cveID() string {
	for _, alias := range v.Advisory.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	return v.Advisory.ID
}
