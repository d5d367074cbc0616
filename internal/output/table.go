// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

const (
	maxTitleWords = 12
	dateLayout    = "2006-01-02"
)

// TableConfig controls how assessment rows are sorted and styled.
type TableConfig struct {
	SortBy     string // "risk", "priority", "cve", "package", "" (preserve order)
	IsTerminal bool   // true when output goes to a terminal (enables ANSI styling)
}

// IsOutputToTerminal returns true if the writer is stdout connected to a
// character device (TTY).
func IsOutputToTerminal(output io.Writer) bool {
	return output == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

// WriteAssessmentTable writes assessments as one table per project, projects
// in alphabetical order.
func WriteAssessmentTable(w io.Writer, assessments []types.Assessment, cfg TableConfig) error {
	groups := groupByProject(assessments)
	if len(groups) == 0 {
		fmt.Fprintln(w, "No assessments.")
		return nil
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeProjectHeader(w, g, cfg.IsTerminal)
		sortRows(g.rows, cfg.SortBy)
		writeAssessmentRows(w, g.rows, cfg)
	}
	return nil
}

type projectGroup struct {
	name string
	kind types.ProjectType
	rows []*types.Assessment
}

func groupByProject(assessments []types.Assessment) []projectGroup {
	index := map[string]int{}
	var groups []projectGroup
	for i := range assessments {
		a := &assessments[i]
		n, ok := index[a.Alert.ProjectName]
		if !ok {
			n = len(groups)
			index[a.Alert.ProjectName] = n
			groups = append(groups, projectGroup{name: a.Alert.ProjectName, kind: a.Alert.ProjectType})
		}
		groups[n].rows = append(groups[n].rows, a)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}

// writeProjectHeader writes the project name with formatting and priority summary.
func writeProjectHeader(w io.Writer, g projectGroup, isTerminal bool) {
	title := fmt.Sprintf("%s (%s)", g.name, g.kind)
	if isTerminal {
		_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n", title)
	} else {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(title)))
	}
	fmt.Fprintln(w, prioritySummary(g.rows))
	fmt.Fprintln(w)
}

// newTableWriter creates a table writer with borders, auto-merge, and row
// separators. When isTerminal is true, header and line styles use ANSI
// formatting.
func newTableWriter(w io.Writer, isTerminal bool) *aqtable.Table {
	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetAutoMerge(true)
	tw.SetRowLines(true)
	return tw
}

func writeAssessmentRows(w io.Writer, rows []*types.Assessment, cfg TableConfig) {
	tw := newTableWriter(w, cfg.IsTerminal)
	tw.SetHeaders("Package", "Vulnerability", "Severity", "Installed Version", "Fixed Version", "Risk", "Priority", "Action", "Title")
	for _, a := range rows {
		tw.AddRow(rowCells(a, cfg.IsTerminal)...)
	}
	tw.Render()
}

func rowCells(a *types.Assessment, isTerminal bool) []string {
	alert := &a.Alert
	severity := strings.ToUpper(string(alert.Severity))
	priority := string(a.Priority)
	action := string(a.Action)
	if isTerminal {
		severity = colorize(severity)
		priority = colorize(priority)
		action = colorizeAction(action)
	}
	return []string{
		alert.PackageName,
		orDash(alert.CVEID),
		severity,
		alert.PackageVersion,
		orDash(alert.FixedVersion),
		fmt.Sprintf("%.1f", a.RiskScore),
		priority,
		action,
		titleWithURL(alert, isTerminal),
	}
}

// prioritySummary returns a line like:
// Total: 5 (CRITICAL: 1, HIGH: 1, MEDIUM: 1, LOW: 2)
func prioritySummary(rows []*types.Assessment) string {
	counts := map[types.Priority]int{}
	for _, a := range rows {
		counts[a.Priority]++
	}
	return fmt.Sprintf("Total: %d (CRITICAL: %d, HIGH: %d, MEDIUM: %d, LOW: %d)",
		len(rows), counts[types.PriorityCritical], counts[types.PriorityHigh],
		counts[types.PriorityMedium], counts[types.PriorityLow])
}

// tierColors maps severity and priority names to color functions.
var tierColors = map[string]func(a ...any) string{
	"LOW":      color.New(color.FgBlue).SprintFunc(),
	"MEDIUM":   color.New(color.FgYellow).SprintFunc(),
	"HIGH":     color.New(color.FgHiRed).SprintFunc(),
	"CRITICAL": color.New(color.FgRed).SprintFunc(),
}

var actionColors = map[string]func(a ...any) string{
	string(types.ActionFixNow):  color.New(color.FgRed, color.Bold).SprintFunc(),
	string(types.ActionFixSoon): color.New(color.FgYellow).SprintFunc(),
	string(types.ActionMonitor): color.New(color.FgCyan).SprintFunc(),
}

func colorize(tier string) string {
	if fn, ok := tierColors[tier]; ok {
		return fn(tier)
	}
	return tier
}

func colorizeAction(action string) string {
	if fn, ok := actionColors[action]; ok {
		return fn(action)
	}
	return action
}

// priorityRank returns a numeric rank for sorting (higher = more urgent).
func priorityRank(p types.Priority) int {
	switch p {
	case types.PriorityCritical:
		return 4
	case types.PriorityHigh:
		return 3
	case types.PriorityMedium:
		return 2
	case types.PriorityLow:
		return 1
	default:
		return 0
	}
}

// sortRows sorts the assessment rows based on the given sort key.
func sortRows(rows []*types.Assessment, sortBy string) {
	switch sortBy {
	case "risk":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].RiskScore > rows[j].RiskScore
		})
	case "priority":
		sort.SliceStable(rows, func(i, j int) bool {
			return priorityRank(rows[i].Priority) > priorityRank(rows[j].Priority)
		})
	case "cve":
		sort.SliceStable(rows, func(i, j int) bool {
			return deref(rows[i].Alert.CVEID) < deref(rows[j].Alert.CVEID)
		})
	case "package":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Alert.PackageName < rows[j].Alert.PackageName
		})
	default:
		// preserve original order
	}
}

// titleWithURL builds the Title cell: the description truncated to
// maxTitleWords words with the advisory URL on a new line. When isTerminal
// is true, the URL is colored blue.
func titleWithURL(a *types.Alert, isTerminal bool) string {
	title := truncateWords(deref(a.Description), maxTitleWords)
	url := deref(a.AdvisoryURL)
	if url != "" {
		if isTerminal {
			url = tml.Sprintf("<blue>%s</blue>", url)
		}
		if title != "" {
			return title + "\n" + url
		}
		return url
	}
	return title
}

// truncateWords limits text to maxWords words, appending "..." if truncated.
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// WriteRelationshipTable writes one row per stored edge.
func WriteRelationshipTable(w io.Writer, edges []types.Relationship, isTerminal bool) error {
	tw := newTableWriter(w, isTerminal)
	tw.SetHeaders("Project", "Related", "Reason", "Discovered", "Last Seen")
	for _, r := range edges {
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		tw.AddRow(r.Source, r.Target, reason, r.DiscoveredAt.Format(dateLayout), r.LastSeen.Format(dateLayout))
	}
	tw.Render()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
