// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

type assessmentRecord struct {
	Alert          alertRecord `yaml:"alert"`
	Priority       string      `yaml:"priority"`
	Action         string      `yaml:"action"`
	RiskScore      float64     `yaml:"risk_score"`
	Reasoning      string      `yaml:"reasoning"`
	ImpactAnalysis *string     `yaml:"impact_analysis"`
	RecommendedFix *string     `yaml:"recommended_fix"`
	AssessedAt     string      `yaml:"assessed_at"`
}

type assessmentDocument struct {
	Assessments []assessmentRecord `yaml:"assessments"`
	LastUpdated string             `yaml:"last_updated"`
}

// AssessmentStore holds the assessments of the last scoring pass.
type AssessmentStore struct {
	path string
	now  func() time.Time
}

func NewAssessmentStore(path string) *AssessmentStore {
	return &AssessmentStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *AssessmentStore) Path() string { return s.path }

// Load returns the stored assessments in file order and when they were
// written. A missing file is empty. Records whose alert no longer validates
// or whose priority, action, or score is out of range are skipped.
func (s *AssessmentStore) Load() ([]types.Assessment, time.Time, error) {
	var doc assessmentDocument
	found, err := readDocument(s.path, &doc)
	if err != nil || !found {
		return nil, time.Time{}, err
	}

	out := make([]types.Assessment, 0, len(doc.Assessments))
	for i, rec := range doc.Assessments {
		a, err := rec.assessment()
		if err != nil {
			slog.Debug("skipping stored assessment", "index", i, "package", rec.Alert.PackageName, "err", err)
			continue
		}
		out = append(out, a)
	}
	return out, parseLastUpdated(doc.LastUpdated), nil
}

// Save replaces the stored assessments.
func (s *AssessmentStore) Save(assessments []types.Assessment) error {
	doc := assessmentDocument{
		Assessments: make([]assessmentRecord, 0, len(assessments)),
		LastUpdated: types.FormatTimestamp(s.now()),
	}
	for i := range assessments {
		a := &assessments[i]
		doc.Assessments = append(doc.Assessments, assessmentRecord{
			Alert:          recordOf(&a.Alert),
			Priority:       string(a.Priority),
			Action:         string(a.Action),
			RiskScore:      a.RiskScore,
			Reasoning:      a.Reasoning,
			ImpactAnalysis: a.ImpactAnalysis,
			RecommendedFix: a.RecommendedFix,
			AssessedAt:     types.FormatTimestamp(a.AssessedAt),
		})
	}
	return writeDocument(s.path, doc)
}

func (r assessmentRecord) assessment() (types.Assessment, error) {
	alert, err := r.Alert.alert()
	if err != nil {
		return types.Assessment{}, err
	}
	priority := types.Priority(r.Priority)
	if !slices.Contains(types.Priorities, priority) {
		return types.Assessment{}, fmt.Errorf("unknown priority %q", r.Priority)
	}
	action := types.Action(r.Action)
	if !slices.Contains(types.Actions, action) {
		return types.Assessment{}, fmt.Errorf("unknown action %q", r.Action)
	}
	if r.RiskScore < 0 || r.RiskScore > 10 {
		return types.Assessment{}, fmt.Errorf("risk score %v out of range", r.RiskScore)
	}
	var assessedAt time.Time
	if r.AssessedAt != "" {
		if assessedAt, err = types.ParseTimestamp(r.AssessedAt); err != nil {
			return types.Assessment{}, err
		}
	}
	return types.Assessment{
		Alert:          *alert,
		Priority:       priority,
		Action:         action,
		RiskScore:      r.RiskScore,
		Reasoning:      r.Reasoning,
		ImpactAnalysis: r.ImpactAnalysis,
		RecommendedFix: r.RecommendedFix,
		AssessedAt:     assessedAt,
	}, nil
}
