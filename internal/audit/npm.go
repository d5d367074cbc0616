// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

type npmReport struct {
	Vulnerabilities map[string]json.RawMessage `json:"vulnerabilities"`
}

type npmVulnerability struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	Range        string            `json:"range"`
	Title        string            `json:"title"`
	CVEs         []string          `json:"cves"`
	CVSS         *npmCVSS          `json:"cvss"`
	Via          []json.RawMessage `json:"via"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

// npmAdvisory is the object form of a "via" entry. The string form names
// another vulnerable package and carries no advisory data.
type npmAdvisory struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Severity string   `json:"severity"`
	CVSS     *npmCVSS `json:"cvss"`
}

type npmCVSS struct {
	Score        *float64 `json:"score"`
	VectorString string   `json:"vectorString"`
}

type npmFix struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func parseNPM(data []byte, project manifest.Project) ([]*types.Alert, error) {
	var report npmReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing npm audit JSON: %w", err)
	}

	names := make([]string, 0, len(report.Vulnerabilities))
	for name := range report.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	var alerts []*types.Alert
	for _, name := range names {
		var v npmVulnerability
		if err := json.Unmarshal(report.Vulnerabilities[name], &v); err != nil {
			slog.Debug("skipping malformed npm audit record", "package", name, "err", err)
			continue
		}
		if alert := build(project, v.params(name)); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (v npmVulnerability) params(name string) types.AlertParams {
	advisory := v.firstAdvisory()

	title := v.Title
	if title == "" && advisory != nil {
		title = advisory.Title
	}

	cvss := v.CVSS
	if cvss == nil && advisory != nil {
		cvss = advisory.CVSS
	}
	var score *float64
	var vector string
	if cvss != nil {
		vector = cvss.VectorString
		score = resolveScore(cvss.Score, vector)
	}

	p := types.AlertParams{
		PackageName:    name,
		PackageVersion: orUnknown(v.Range),
		FixedVersion:   v.fixedVersion(),
		Severity:       severityLabel(v.Severity, score),
		CVSSScore:      score,
		CVSSVector:     vector,
		Description:    title,
		Source:         types.SourceNPMAudit,
	}
	if len(v.CVEs) > 0 {
		p.CVEID = v.CVEs[0]
	}
	if advisory != nil {
		p.AdvisoryURL = advisory.URL
	}
	return p
}

func (v npmVulnerability) firstAdvisory() *npmAdvisory {
	for _, raw := range v.Via {
		if !isObject(raw) {
			continue
		}
		var a npmAdvisory
		if err := json.Unmarshal(raw, &a); err == nil {
			return &a
		}
	}
	return nil
}

// fixedVersion reads fixAvailable, which is either a bool or an object
// naming the version to install.
func (v npmVulnerability) fixedVersion() string {
	if !isObject(v.FixAvailable) {
		return ""
	}
	var fix npmFix
	if err := json.Unmarshal(v.FixAvailable, &fix); err != nil {
		return ""
	}
	return fix.Version
}
