// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// Priority is the triage tier of an assessment.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Priorities lists all tiers from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Action is the recommended urgency for acting on an assessment.
type Action string

const (
	ActionFixNow  Action = "FIX_NOW"
	ActionFixSoon Action = "FIX_SOON"
	ActionMonitor Action = "MONITOR"
)

// Actions lists all actions from most to least urgent.
var Actions = []Action{ActionFixNow, ActionFixSoon, ActionMonitor}

// Assessment is the scored, classified output for exactly one Alert.
type Assessment struct {
	Alert          Alert     `json:"alert" yaml:"alert"`
	Priority       Priority  `json:"priority" yaml:"priority"`
	Action         Action    `json:"action" yaml:"action"`
	RiskScore      float64   `json:"risk_score" yaml:"risk_score"`
	Reasoning      string    `json:"reasoning" yaml:"reasoning"`
	ImpactAnalysis *string   `json:"impact_analysis" yaml:"impact_analysis"`
	RecommendedFix *string   `json:"recommended_fix" yaml:"recommended_fix"`
	AssessedAt     time.Time `json:"assessed_at" yaml:"assessed_at"`
}
