// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

func TestWriteJSON_Assessments(t *testing.T) {
	a := makeAssessment(t, "web", "lodash", "CVE-2024-0001", types.PriorityHigh, types.ActionFixSoon, 7.5)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []types.Assessment{a}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "HIGH", got[0]["priority"])
	assert.Equal(t, "FIX_SOON", got[0]["action"])
	assert.InDelta(t, 7.5, got[0]["risk_score"], 0.001)

	alert, ok := got[0]["alert"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CVE-2024-0001", alert["cve_id"])
	assert.Equal(t, "lodash", alert["package_name"])
}

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestWriteJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]string{"fix": "upgrade to >=1.2 & <2"}))
	assert.True(t, strings.Contains(buf.String(), ">=1.2 & <2"))
}

func TestWriteJSON_Unencodable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, map[string]any{"ch": make(chan int)})
	assert.ErrorContains(t, err, "encoding JSON output")
}

func TestWriteRelationshipsJSON(t *testing.T) {
	at := time.Date(2026, 1, 6, 9, 30, 0, 0, time.UTC)
	edges := []types.Relationship{{Source: "api", Target: "web", Reason: "auth", DiscoveredAt: at, LastSeen: at}}

	var buf bytes.Buffer
	require.NoError(t, WriteRelationshipsJSON(&buf, edges))
	var got []RelationshipJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []RelationshipJSON{{
		Source:       "api",
		Target:       "web",
		Reason:       "auth",
		DiscoveredAt: "2026-01-06T09:30:00Z",
		LastSeen:     "2026-01-06T09:30:00Z",
	}}, got)
}

func TestWriteRelationshipsJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRelationshipsJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
