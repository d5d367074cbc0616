// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/workspace-brain/internal/manifest"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

var (
	webProject   = manifest.Project{Name: "web", Path: "/ws/web", Type: types.ProjectNodeFrontend}
	apiProject   = manifest.Project{Name: "api", Path: "/ws/api", Type: types.ProjectPythonBackend}
	agentProject = manifest.Project{Name: "agent", Path: "/ws/agent", Type: types.ProjectRust}
)

const npmReportJSON = `{
  "auditReportVersion": 2,
  "vulnerabilities": {
    "lodash": {
      "name": "lodash",
      "severity": "high",
      "range": "<4.17.21",
      "via": [
        {
          "source": 1106913,
          "name": "lodash",
          "title": "Command Injection in lodash",
          "url": "https://github.com/advisories/GHSA-35jh-r3h4-6jhm",
          "severity": "high",
          "cvss": {"score": 7.2, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:H/I:H/A:H"}
        }
      ],
      "fixAvailable": {"name": "lodash", "version": "4.17.21", "isSemVerMajor": false}
    },
    "minimist": {
      "name": "minimist",
      "severity": "moderate",
      "range": "<1.2.6",
      "cves": ["CVE-2021-44906"],
      "via": ["other-package"],
      "fixAvailable": true
    },
    "broken": "not an object"
  }
}`

const pipReportJSON = `{
  "dependencies": [
    {"name": "flask", "version": "0.5", "vulns": [
      {"id": "PYSEC-2019-179", "fix_versions": ["1.0"], "aliases": ["CVE-2019-1010083"], "description": "DoS in Flask"}
    ]},
    {"name": "requests", "version": "2.31.0", "vulns": []}
  ],
  "fixes": []
}`

const pipFlatReport = `{
  "vulnerabilities": [
    {"id": "CVE-2023-30861", "name": "flask", "installed_version": "2.2.0", "fix_versions": ["2.2.5"], "severity": "HIGH", "cvss": {"score": 7.5}},
    {"id": "CVE-2023-0001", "name": "", "installed_version": "", "severity": "BOGUS"},
    42
  ]
}`

const cargoReportJSON = `{
  "database": {"advisory-count": 500},
  "lockfile": {"dependency-count": 120},
  "vulnerabilities": {
    "found": true,
    "count": 2,
    "list": [
      {
        "advisory": {
          "id": "RUSTSEC-2020-0071",
          "package": "time",
          "title": "Potential segfault in the time crate",
          "aliases": ["CVE-2020-26235"],
          "cvss": "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:N/I:N/A:H",
          "url": "https://github.com/time-rs/time/issues/293"
        },
        "versions": {"patched": [">=0.2.23"], "unaffected": ["=0.2.0"]},
        "package": {"name": "time", "version": "0.1.45"}
      },
      {
        "advisory": {"id": "RUSTSEC-2021-0001", "title": "Unscored", "cvss": null, "severity": "medium"},
        "versions": {"patched": []},
        "package": {"name": "foo", "version": "1.0.0"}
      }
    ]
  }
}`

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Format
	}{
		{"npm", npmReportJSON, FormatNPM},
		{"npm without version", `{"vulnerabilities": {"a": {"severity": "low"}}}`, FormatNPM},
		{"pip dependencies", pipReportJSON, FormatPip},
		{"pip flat", pipFlatReport, FormatPip},
		{"cargo", cargoReportJSON, FormatCargo},
		{"cargo no findings", `{"database": {}, "vulnerabilities": {"found": false, "count": 0, "list": []}}`, FormatCargo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	_, err := Detect([]byte(`{"SchemaVersion": 2}`))
	assert.ErrorContains(t, err, "unrecognized input format")

	_, err = Detect([]byte(`not json`))
	assert.ErrorContains(t, err, "invalid JSON input")
}

func TestParse_NPM(t *testing.T) {
	alerts, err := Parse([]byte(npmReportJSON), webProject)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	lodash := alerts[0]
	assert.Equal(t, "lodash", lodash.PackageName)
	assert.Equal(t, "<4.17.21", lodash.PackageVersion)
	assert.Equal(t, types.SeverityHigh, lodash.Severity)
	require.NotNil(t, lodash.CVSSScore)
	assert.Equal(t, 7.2, *lodash.CVSSScore)
	require.NotNil(t, lodash.FixedVersion)
	assert.Equal(t, "4.17.21", *lodash.FixedVersion)
	require.NotNil(t, lodash.Description)
	assert.Equal(t, "Command Injection in lodash", *lodash.Description)
	require.NotNil(t, lodash.AdvisoryURL)
	assert.Nil(t, lodash.CVEID)
	assert.Equal(t, types.SourceNPMAudit, lodash.Source)
	assert.Equal(t, "web", lodash.ProjectName)
	assert.Equal(t, types.ProjectNodeFrontend, lodash.ProjectType)

	minimist := alerts[1]
	assert.Equal(t, types.SeverityMedium, minimist.Severity)
	require.NotNil(t, minimist.CVEID)
	assert.Equal(t, "CVE-2021-44906", *minimist.CVEID)
	assert.Nil(t, minimist.FixedVersion)
	assert.Nil(t, minimist.CVSSScore)
}

func TestParse_Pip(t *testing.T) {
	alerts, err := Parse([]byte(pipReportJSON), apiProject)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "flask", a.PackageName)
	assert.Equal(t, "0.5", a.PackageVersion)
	require.NotNil(t, a.CVEID)
	assert.Equal(t, "CVE-2019-1010083", *a.CVEID)
	require.NotNil(t, a.FixedVersion)
	assert.Equal(t, "1.0", *a.FixedVersion)
	assert.Equal(t, types.SeverityLow, a.Severity)
	assert.Equal(t, types.SourcePipAudit, a.Source)
}

func TestParse_PipFlat(t *testing.T) {
	alerts, err := Parse([]byte(pipFlatReport), apiProject)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, types.SeverityHigh, alerts[0].Severity)
	require.NotNil(t, alerts[0].CVSSScore)
	assert.Equal(t, 7.5, *alerts[0].CVSSScore)

	assert.Equal(t, "unknown", alerts[1].PackageName)
	assert.Equal(t, types.SeverityLow, alerts[1].Severity, "unknown labels map to low")
}

func TestParse_Cargo(t *testing.T) {
	alerts, err := Parse([]byte(cargoReportJSON), agentProject)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	timeAlert := alerts[0]
	require.NotNil(t, timeAlert.CVEID)
	assert.Equal(t, "CVE-2020-26235", *timeAlert.CVEID)
	require.NotNil(t, timeAlert.CVSSScore)
	assert.InDelta(t, 5.9, *timeAlert.CVSSScore, 0.001)
	require.NotNil(t, timeAlert.CVSSVector)
	assert.Equal(t, types.SeverityMedium, timeAlert.Severity)
	require.NotNil(t, timeAlert.FixedVersion)
	assert.Equal(t, ">=0.2.23", *timeAlert.FixedVersion)

	unscored := alerts[1]
	require.NotNil(t, unscored.CVEID)
	assert.Equal(t, "RUSTSEC-2021-0001", *unscored.CVEID)
	assert.Nil(t, unscored.CVSSScore)
	assert.Equal(t, types.SeverityMedium, unscored.Severity)
}

func TestScoreFromVector(t *testing.T) {
	tests := []struct {
		vector string
		want   float64
	}{
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8},
		{"CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8},
		{"AV:N/AC:L/Au:N/C:P/I:P/A:P", 7.5},
		{"CVSS:4.0/AV:N/AC:L/AT:N/PR:N/UI:N/VC:H/VI:H/VA:H/SC:N/SI:N/SA:N", 9.3},
	}
	for _, tt := range tests {
		t.Run(tt.vector, func(t *testing.T) {
			got, err := ScoreFromVector(tt.vector)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	_, err := ScoreFromVector("CVSS:3.1/garbage")
	assert.Error(t, err)
}

func TestSeverityLabel(t *testing.T) {
	score := func(f float64) *float64 { return &f }

	assert.Equal(t, "medium", severityLabel("MODERATE", nil))
	assert.Equal(t, "critical", severityLabel("CRITICAL", nil))
	assert.Equal(t, "low", severityLabel("informational", score(9.9)))
	assert.Equal(t, "low", severityLabel("", nil))
	assert.Equal(t, "critical", severityLabel("", score(9.0)))
	assert.Equal(t, "high", severityLabel("", score(7.0)))
	assert.Equal(t, "medium", severityLabel("", score(4.0)))
	assert.Equal(t, "low", severityLabel("", score(3.9)))
}
