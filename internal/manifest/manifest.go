// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads the project list from the brain's MANIFEST.yaml.
package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

const defaultConfidence = 0.5

// Project is one detected workspace project.
type Project struct {
	Name       string
	Path       string
	Type       types.ProjectType
	Confidence float64
	Signals    []string
}

type document struct {
	WorkspacePath    string          `yaml:"workspace_path"`
	DetectedProjects []projectRecord `yaml:"detected_projects"`
}

type projectRecord struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Type        string   `yaml:"type"`
	ProjectType string   `yaml:"project_type"`
	Confidence  *float64 `yaml:"confidence"`
	Signals     []string `yaml:"signals"`
}

// Load reads the manifest at path. A missing file returns an error wrapping
// os.ErrNotExist. An unparsable document yields no projects. Relative
// project paths are resolved against root.
func Load(path, root string) ([]Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Debug("ignoring unparsable manifest", "path", path, "err", err)
		return nil, nil
	}

	projects := make([]Project, 0, len(doc.DetectedProjects))
	for _, rec := range doc.DetectedProjects {
		if rec.Name == "" || rec.Path == "" {
			slog.Debug("skipping manifest project without name or path", "name", rec.Name)
			continue
		}
		projects = append(projects, rec.project(root))
	}
	return projects, nil
}

func (r projectRecord) project(root string) Project {
	pt := r.Type
	if pt == "" {
		pt = r.ProjectType
	}
	if pt == "" {
		pt = string(types.ProjectUnknown)
	}
	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	path := r.Path
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	return Project{
		Name:       r.Name,
		Path:       path,
		Type:       types.ProjectType(pt),
		Confidence: confidence,
		Signals:    r.Signals,
	}
}

// Find returns the project called name.
func Find(projects []Project, name string) (Project, bool) {
	for _, p := range projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}
