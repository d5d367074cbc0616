// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package relationship

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

// ErrCorrupt marks a relationship document that could not be decoded.
var ErrCorrupt = errors.New("corrupt relationship store")

// Edges holds the outgoing edges of each source project in insertion order.
type Edges map[string][]*types.Relationship

// Store loads and saves the complete edge set.
type Store interface {
	Load() (Edges, error)
	Save(Edges) error
}

type edgeRecord struct {
	Target       string `yaml:"target"`
	Reason       string `yaml:"reason"`
	DiscoveredAt string `yaml:"discovered_at"`
	LastSeen     string `yaml:"last_seen"`
}

type document struct {
	Relationships map[string][]edgeRecord `yaml:"relationships"`
	UpdatedAt     string                  `yaml:"updated_at"`
}

// FileStore persists edges as a YAML document.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the edge set. A missing file is an empty set. A document that
// cannot be decoded is reported as ErrCorrupt.
func (s *FileStore) Load() (Edges, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Edges{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return decode(data)
}

func decode(data []byte) (Edges, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	edges := Edges{}
	for source, records := range doc.Relationships {
		list := make([]*types.Relationship, 0, len(records))
		for _, rec := range records {
			if rec.Target == "" {
				return nil, fmt.Errorf("%w: edge from %s has no target", ErrCorrupt, source)
			}
			discovered, err := parseTime(rec.DiscoveredAt)
			if err != nil {
				return nil, fmt.Errorf("%w: discovered_at of %s->%s: %v", ErrCorrupt, source, rec.Target, err)
			}
			lastSeen, err := parseTime(rec.LastSeen)
			if err != nil {
				return nil, fmt.Errorf("%w: last_seen of %s->%s: %v", ErrCorrupt, source, rec.Target, err)
			}
			list = append(list, &types.Relationship{
				Source:       source,
				Target:       rec.Target,
				Reason:       rec.Reason,
				DiscoveredAt: discovered,
				LastSeen:     lastSeen,
			})
		}
		edges[source] = list
	}
	return edges, nil
}

// parseTime reads a stored timestamp. An empty value means now.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return types.ParseTimestamp(s)
}

// Save writes the complete edge set, replacing the previous document.
func (s *FileStore) Save(edges Edges) error {
	doc := document{
		Relationships: make(map[string][]edgeRecord, len(edges)),
		UpdatedAt:     types.FormatTimestamp(s.now()),
	}
	for source, list := range edges {
		records := make([]edgeRecord, 0, len(list))
		for _, r := range list {
			records = append(records, edgeRecord{
				Target:       r.Target,
				Reason:       r.Reason,
				DiscoveredAt: types.FormatTimestamp(r.DiscoveredAt),
				LastSeen:     types.FormatTimestamp(r.LastSeen),
			})
		}
		doc.Relationships[source] = records
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling relationships: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating brain dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing relationships: %w", err)
	}
	return nil
}

// load wraps Store.Load with the silent-recovery policy: anything that can
// not be read starts from an empty set, since the store can be rebuilt from
// the daily logs.
func load(store Store) Edges {
	edges, err := store.Load()
	if err != nil {
		slog.Debug("discarding relationship store", "err", err)
		return Edges{}
	}
	if edges == nil {
		return Edges{}
	}
	return edges
}
