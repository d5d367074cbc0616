// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

// WriteJSON writes data as indented JSON. HTML characters in version ranges
// such as ">=1.2 <2" are left unescaped.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// RelationshipJSON is the JSON shape of one stored edge, matching the
// relationships.yaml keys.
type RelationshipJSON struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Reason       string `json:"reason"`
	DiscoveredAt string `json:"discovered_at"`
	LastSeen     string `json:"last_seen"`
}

// WriteRelationshipsJSON writes edges as a JSON array, empty rather than
// null when there are none.
func WriteRelationshipsJSON(w io.Writer, edges []types.Relationship) error {
	out := make([]RelationshipJSON, 0, len(edges))
	for _, r := range edges {
		out = append(out, RelationshipJSON{
			Source:       r.Source,
			Target:       r.Target,
			Reason:       r.Reason,
			DiscoveredAt: types.FormatTimestamp(r.DiscoveredAt),
			LastSeen:     types.FormatTimestamp(r.LastSeen),
		})
	}
	return WriteJSON(w, out)
}
