// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package relationship tracks directed links between workspace projects
// discovered from work-session logs.
package relationship

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

// Engine owns the edge set for the lifetime of one command. Every mutating
// call writes the full set back to the store.
type Engine struct {
	store Store
	edges Edges
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for last_seen and manual additions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New loads the edge set from store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.edges = load(store)
	return e
}

// RefreshFromEntries merges the related-project mentions of entries into the
// edge set, in the order given, then persists and returns the graph.
// Known edges get a new last_seen and the latest reason; new edges keep the
// entry's own timestamp as discovered_at.
func (e *Engine) RefreshFromEntries(entries []types.LogEntry) (types.Graph, error) {
	now := e.now()
	for i := range entries {
		entry := &entries[i]
		if entry.ProjectName == "" {
			slog.Debug("skipping log entry without project", "timestamp", entry.Timestamp)
			continue
		}
		source := entry.ProjectName
		if _, ok := e.edges[source]; !ok {
			e.edges[source] = []*types.Relationship{}
		}

		targets := make([]string, 0, len(entry.RelatedProjects))
		for target := range entry.RelatedProjects {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			if target == "" || target == source {
				slog.Debug("skipping related project", "source", source, "target", target)
				continue
			}
			reason := entry.RelatedProjects[target]
			if existing := e.find(source, target); existing != nil {
				existing.LastSeen = now
				existing.Reason = reason
				continue
			}
			e.edges[source] = append(e.edges[source], &types.Relationship{
				Source:       source,
				Target:       target,
				Reason:       reason,
				DiscoveredAt: entry.Timestamp,
				LastSeen:     now,
			})
		}
	}

	if err := e.save(); err != nil {
		return nil, err
	}
	return e.Graph(), nil
}

// Graph builds the bidirectional view of the current edge set.
func (e *Engine) Graph() types.Graph {
	g := types.Graph{}
	for source, list := range e.edges {
		g.Touch(source)
		for _, r := range list {
			g.Link(source, r.Target)
		}
	}
	return g
}

// Related returns the projects linked to name in either direction.
func (e *Engine) Related(name string) []string {
	return e.Graph().Related(name)
}

// ContextProjects returns name followed by its related projects, sorted.
func (e *Engine) ContextProjects(name string) []string {
	return append([]string{name}, e.Related(name)...)
}

// All returns a copy of every edge, ordered by source then insertion.
func (e *Engine) All() []types.Relationship {
	sources := make([]string, 0, len(e.edges))
	for s := range e.edges {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var out []types.Relationship
	for _, s := range sources {
		for _, r := range e.edges[s] {
			out = append(out, *r)
		}
	}
	return out
}

// Add records source -> target. An existing edge is refreshed, and its
// reason replaced when reason is non-empty.
func (e *Engine) Add(source, target, reason string) (types.Relationship, error) {
	if source == "" || target == "" {
		return types.Relationship{}, fmt.Errorf("source and target are required")
	}
	if source == target {
		return types.Relationship{}, fmt.Errorf("%s cannot be related to itself", source)
	}
	now := e.now()
	rel := e.find(source, target)
	if rel != nil {
		rel.LastSeen = now
		if reason != "" {
			rel.Reason = reason
		}
	} else {
		rel = &types.Relationship{
			Source:       source,
			Target:       target,
			Reason:       reason,
			DiscoveredAt: now,
			LastSeen:     now,
		}
		e.edges[source] = append(e.edges[source], rel)
	}
	if err := e.save(); err != nil {
		return types.Relationship{}, err
	}
	return *rel, nil
}

// Remove deletes source -> target. It reports false, and writes nothing,
// when there is no such edge. The source stays known with an empty set.
func (e *Engine) Remove(source, target string) (bool, error) {
	list := e.edges[source]
	for i, r := range list {
		if r.Target != target {
			continue
		}
		e.edges[source] = append(list[:i:i], list[i+1:]...)
		if err := e.save(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (e *Engine) find(source, target string) *types.Relationship {
	for _, r := range e.edges[source] {
		if r.Target == target {
			return r
		}
	}
	return nil
}

func (e *Engine) save() error {
	if err := e.store.Save(e.edges); err != nil {
		return fmt.Errorf("saving relationships: %w", err)
	}
	return nil
}
