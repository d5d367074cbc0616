// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"sort"
	"time"
)

// Relationship is one directed, reasoned edge from Source to Target.
type Relationship struct {
	Source       string
	Target       string
	Reason       string
	DiscoveredAt time.Time
	LastSeen     time.Time
}

// Graph maps a project to the set of projects related to it in either
// direction. It is always derived from the stored directed edges and must
// not be persisted.
type Graph map[string]map[string]struct{}

// Link records a <-> b.
func (g Graph) Link(a, b string) {
	g.ensure(a)[b] = struct{}{}
	g.ensure(b)[a] = struct{}{}
}

// Touch makes sure name is a key, even with no neighbours.
func (g Graph) Touch(name string) {
	g.ensure(name)
}

func (g Graph) ensure(name string) map[string]struct{} {
	set, ok := g[name]
	if !ok {
		set = make(map[string]struct{})
		g[name] = set
	}
	return set
}

// Has reports whether b is in a's related set.
func (g Graph) Has(a, b string) bool {
	_, ok := g[a][b]
	return ok
}

// Related returns a's neighbours in sorted order. Absent names yield an
// empty, non-nil slice.
func (g Graph) Related(name string) []string {
	out := make([]string, 0, len(g[name]))
	for n := range g[name] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Projects returns every key of g in sorted order.
func (g Graph) Projects() []string {
	out := make([]string, 0, len(g))
	for n := range g {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// LogEntry is one parsed work session from a daily log.
type LogEntry struct {
	ProjectName     string            `json:"project_name"`
	Timestamp       time.Time         `json:"timestamp"`
	AITool          string            `json:"ai_tool"`
	Summary         string            `json:"summary"`
	WhatWasDone     []string          `json:"what_was_done"`
	Reasoning       string            `json:"reasoning,omitempty"`
	RelatedProjects map[string]string `json:"related_projects"`
	OpenQuestions   []string          `json:"open_questions"`
	KeyFiles        []string          `json:"key_files"`
}
