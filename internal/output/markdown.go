// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

const (
	criticalPerProject = 5
	highPerProject     = 3
	projectTopIssues   = 5
)

// RenderSecurityContext renders the workspace-wide security context document
// read by assistants at session start.
func RenderSecurityContext(assessments []types.Assessment, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Security Context\n\n")
	fmt.Fprintf(&b, "*Last Updated: %s*\n\n", now.Format("2006-01-02 15:04"))

	var critical, high []types.Assessment
	monitored := 0
	for _, a := range assessments {
		switch a.Priority {
		case types.PriorityCritical:
			critical = append(critical, a)
		case types.PriorityHigh:
			high = append(high, a)
		default:
			monitored++
		}
	}

	if len(critical) > 0 {
		b.WriteString("## Critical Issues (Fix Now)\n\n")
		writeGrouped(&b, critical, criticalPerProject)
	}
	if len(high) > 0 {
		b.WriteString("## High Priority (Fix Soon)\n\n")
		writeGrouped(&b, high, highPerProject)
	}
	if monitored > 0 {
		b.WriteString("## Monitoring\n\n")
		fmt.Fprintf(&b, "*%d lower-priority issues being monitored*\n\n", monitored)
	}

	counts := map[types.Action]int{}
	for _, a := range assessments {
		counts[a.Action]++
	}
	b.WriteString("---\n\n## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Alerts**: %d\n", len(assessments))
	fmt.Fprintf(&b, "- **Fix Now**: %d\n", counts[types.ActionFixNow])
	fmt.Fprintf(&b, "- **Fix Soon**: %d\n", counts[types.ActionFixSoon])
	fmt.Fprintf(&b, "- **Monitor**: %d\n\n", counts[types.ActionMonitor])
	b.WriteString("*Run `wbrain security status` for detailed view.*\n")
	return b.String()
}

// writeGrouped writes up to limit assessments per project, projects in
// alphabetical order.
func writeGrouped(b *strings.Builder, assessments []types.Assessment, limit int) {
	byProject := map[string][]types.Assessment{}
	kinds := map[string]types.ProjectType{}
	for _, a := range assessments {
		byProject[a.Alert.ProjectName] = append(byProject[a.Alert.ProjectName], a)
		kinds[a.Alert.ProjectName] = a.Alert.ProjectType
	}
	names := make([]string, 0, len(byProject))
	for name := range byProject {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(b, "### %s (%s)\n\n", name, kinds[name])
		list := byProject[name]
		if len(list) > limit {
			list = list[:limit]
		}
		for i := range list {
			writeAssessment(b, &list[i])
		}
		b.WriteString("\n")
	}
}

func writeAssessment(b *strings.Builder, a *types.Assessment) {
	alert := &a.Alert
	id := "Vulnerability"
	if alert.CVEID != nil {
		id = *alert.CVEID
	}
	fmt.Fprintf(b, "- **%s** in `%s==%s`", id, alert.PackageName, alert.PackageVersion)
	if alert.CVSSScore != nil {
		fmt.Fprintf(b, " (CVSS %.1f)", *alert.CVSSScore)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  - **Action**: %s\n", fixOrReview(a))
	fmt.Fprintf(b, "  - **Reason**: %s\n", a.Reasoning)
	if a.ImpactAnalysis != nil && *a.ImpactAnalysis != "" {
		fmt.Fprintf(b, "  - **Impact**: %s\n", *a.ImpactAnalysis)
	}
}

// RenderProjectSecurity renders the security section for one project's
// context. It returns an empty string when the project has no assessments.
func RenderProjectSecurity(project string, assessments []types.Assessment) string {
	var own []types.Assessment
	for _, a := range assessments {
		if a.Alert.ProjectName == project {
			own = append(own, a)
		}
	}
	if len(own) == 0 {
		return ""
	}

	counts := map[types.Priority]int{}
	for _, a := range own {
		counts[a.Priority]++
	}
	parts := make([]string, 0, len(types.Priorities))
	for _, p := range types.Priorities {
		if counts[p] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[p], titleCase(string(p))))
		}
	}

	sort.SliceStable(own, func(i, j int) bool { return own[i].RiskScore > own[j].RiskScore })
	if len(own) > projectTopIssues {
		own = own[:projectTopIssues]
	}

	var b strings.Builder
	b.WriteString("## Security Alerts\n\n")
	fmt.Fprintf(&b, "**%s priority issues**\n\n", strings.Join(parts, ", "))
	for i := range own {
		a := &own[i]
		id := deref(a.Alert.CVEID)
		if id == "" {
			id = "Vulnerability"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", id, fixOrReview(a), a.Priority)
	}
	return b.String()
}

func fixOrReview(a *types.Assessment) string {
	if a.RecommendedFix != nil && *a.RecommendedFix != "" {
		return *a.RecommendedFix
	}
	return "Review " + a.Alert.PackageName
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
