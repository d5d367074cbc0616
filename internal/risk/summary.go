// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package risk

import "github.com/bonial-oss/workspace-brain/internal/types"

// Summary counts assessments per priority and per action.
type Summary struct {
	Total      int
	ByPriority map[types.Priority]int
	ByAction   map[types.Action]int
}

// Summarize tallies assessments.
func Summarize(assessments []types.Assessment) Summary {
	s := Summary{
		Total:      len(assessments),
		ByPriority: make(map[types.Priority]int, len(types.Priorities)),
		ByAction:   make(map[types.Action]int, len(types.Actions)),
	}
	for i := range assessments {
		s.ByPriority[assessments[i].Priority]++
		s.ByAction[assessments[i].Action]++
	}
	return s
}

// AtLeast reports whether any assessment has priority p or a more urgent one.
func (s Summary) AtLeast(p types.Priority) bool {
	for _, q := range types.Priorities {
		if s.ByPriority[q] > 0 {
			return true
		}
		if q == p {
			break
		}
	}
	return false
}

// ForProject returns the assessments whose alert belongs to project, in
// their existing order.
func ForProject(assessments []types.Assessment, project string) []types.Assessment {
	var out []types.Assessment
	for i := range assessments {
		if assessments[i].Alert.ProjectName == project {
			out = append(out, assessments[i])
		}
	}
	return out
}
