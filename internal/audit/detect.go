// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package audit turns the output of dependency audit tools and the GitHub
// Dependabot API into validated alerts.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatNPM
	FormatPip
	FormatCargo
)

func (f Format) String() string {
	switch f {
	case FormatNPM:
		return "npm-audit"
	case FormatPip:
		return "pip-audit"
	case FormatCargo:
		return "cargo-audit"
	default:
		return "unknown"
	}
}

// Detect probes an audit report and reports which tool produced it.
func Detect(data []byte) (Format, error) {
	var probe struct {
		AuditReportVersion *int             `json:"auditReportVersion"`
		Dependencies       json.RawMessage  `json:"dependencies"`
		Vulnerabilities    json.RawMessage  `json:"vulnerabilities"`
		Database           *json.RawMessage `json:"database"`
		Lockfile           *json.RawMessage `json:"lockfile"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return FormatUnknown, fmt.Errorf("invalid JSON input: %w", err)
	}

	// npm audit v7+: has auditReportVersion
	if probe.AuditReportVersion != nil {
		return FormatNPM, nil
	}

	// cargo audit: vulnerabilities object carrying a list
	if isObject(probe.Vulnerabilities) {
		var cargo struct {
			List json.RawMessage `json:"list"`
		}
		if err := json.Unmarshal(probe.Vulnerabilities, &cargo); err == nil && isArray(cargo.List) {
			return FormatCargo, nil
		}
		if probe.Database != nil || probe.Lockfile != nil {
			return FormatCargo, nil
		}
		return FormatNPM, nil
	}

	// pip-audit: dependencies array, or a flat vulnerabilities array
	if isArray(probe.Dependencies) || isArray(probe.Vulnerabilities) {
		return FormatPip, nil
	}

	return FormatUnknown, fmt.Errorf("unrecognized input format: not npm audit, pip-audit, or cargo audit")
}

// Parse detects the report format and maps each record to an alert for
// project. Malformed records are skipped.
func Parse(data []byte, project manifest.Project) ([]*types.Alert, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	return ParseFormat(format, data, project)
}

// ParseFormat maps a report of a known format to alerts for project.
func ParseFormat(format Format, data []byte, project manifest.Project) ([]*types.Alert, error) {
	switch format {
	case FormatNPM:
		return parseNPM(data, project)
	case FormatPip:
		return parsePip(data, project)
	case FormatCargo:
		return parseCargo(data, project)
	default:
		return nil, fmt.Errorf("unsupported audit format %s", format)
	}
}

// build validates p for project, logging and dropping invalid records.
func build(project manifest.Project, p types.AlertParams) *types.Alert {
	p.ProjectName = project.Name
	p.ProjectType = project.Type
	alert, err := types.NewAlert(p)
	if err != nil {
		slog.Debug("skipping audit record", "source", p.Source, "project", project.Name, "package", p.PackageName, "err", err)
		return nil
	}
	return alert
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// orUnknown substitutes "unknown" for an empty identifier the tools left out.
func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
