// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"log/slog"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

type alertDocument struct {
	Alerts      []alertRecord `yaml:"alerts"`
	LastUpdated string        `yaml:"last_updated"`
}

// AlertStore holds the alerts collected by the last scan.
type AlertStore struct {
	path string
	now  func() time.Time
}

func NewAlertStore(path string) *AlertStore {
	return &AlertStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *AlertStore) Path() string { return s.path }

// Load returns the stored alerts and when they were written. A missing file
// is empty. Records that no longer validate are skipped.
func (s *AlertStore) Load() ([]*types.Alert, time.Time, error) {
	var doc alertDocument
	found, err := readDocument(s.path, &doc)
	if err != nil || !found {
		return nil, time.Time{}, err
	}

	alerts := make([]*types.Alert, 0, len(doc.Alerts))
	for i, rec := range doc.Alerts {
		alert, err := rec.alert()
		if err != nil {
			slog.Debug("skipping stored alert", "index", i, "package", rec.PackageName, "err", err)
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, parseLastUpdated(doc.LastUpdated), nil
}

// Save replaces the stored alerts.
func (s *AlertStore) Save(alerts []*types.Alert) error {
	doc := alertDocument{
		Alerts:      make([]alertRecord, 0, len(alerts)),
		LastUpdated: types.FormatTimestamp(s.now()),
	}
	for _, a := range alerts {
		doc.Alerts = append(doc.Alerts, recordOf(a))
	}
	return writeDocument(s.path, doc)
}
