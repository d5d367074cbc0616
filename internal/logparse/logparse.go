// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package logparse reads the brain's daily AI session logs.
//
// A daily log is brain/LOGS/YYYY-MM-DD.md holding one block per session:
//
//	## Session: 14:30 - backend (claude)
//
//	### Summary
//	Added token refresh.
//
//	### Related Projects
//	- **frontend**: consumes the refresh endpoint
//
//	---
package logparse

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/types"
)

const dateLayout = "2006-01-02"

var (
	sessionHeader = regexp.MustCompile(`^##\s+Session:\s+(\d{1,2}):(\d{2})\s+-\s+(.+?)\s+\(([^()]+)\)\s*$`)
	sectionHeader = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	relatedLine   = regexp.MustCompile(`^-\s*\*\*([^*]+)\*\*:\s*(.+)$`)
)

// ParseFile parses one daily log. The file name supplies the date; times
// are interpreted in loc. A missing file yields no entries.
func ParseFile(path string, loc *time.Location) ([]types.LogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	date, err := time.ParseInLocation(dateLayout, stem, loc)
	if err != nil {
		slog.Debug("log file name is not a date, using today", "path", path)
		now := time.Now().In(loc)
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	}
	return Parse(string(data), date), nil
}

// Parse splits content into session blocks dated on date.
func Parse(content string, date time.Time) []types.LogEntry {
	var entries []types.LogEntry
	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		if entry, ok := parseSession(block, date); ok {
			entries = append(entries, entry)
		}
		block = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "## Session:") {
			flush()
		}
		if block != nil || strings.HasPrefix(line, "## Session:") {
			block = append(block, line)
		}
	}
	flush()
	return entries
}

// InRange returns the entries of the last days daily logs up to and
// including now's date, newest first.
func InRange(dir string, days int, now time.Time) ([]types.LogEntry, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log dir: %w", err)
	}

	var entries []types.LogEntry
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i)
		path := filepath.Join(dir, day.Format(dateLayout)+".md")
		parsed, err := ParseFile(path, now.Location())
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

func parseSession(lines []string, date time.Time) (types.LogEntry, bool) {
	m := sessionHeader.FindStringSubmatch(lines[0])
	if m == nil {
		return types.LogEntry{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	ts := date
	if hour < 24 && minute < 60 {
		ts = time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
	}

	entry := types.LogEntry{
		ProjectName:     m[3],
		Timestamp:       ts,
		AITool:          m[4],
		RelatedProjects: map[string]string{},
	}

	var section string
	var content []string
	for _, line := range lines[1:] {
		if h := sectionHeader.FindStringSubmatch(line); h != nil {
			saveSection(&entry, section, content)
			section = strings.ToLower(h[1])
			content = nil
			continue
		}
		if strings.TrimSpace(line) == "---" {
			break
		}
		content = append(content, line)
	}
	saveSection(&entry, section, content)
	return entry, true
}

func saveSection(entry *types.LogEntry, section string, content []string) {
	text := strings.TrimSpace(strings.Join(content, "\n"))
	switch section {
	case "summary":
		entry.Summary = text
	case "what was done":
		entry.WhatWasDone = bullets(content)
	case "ai reasoning", "reasoning":
		entry.Reasoning = text
	case "related projects":
		for _, line := range content {
			if m := relatedLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				entry.RelatedProjects[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
			}
		}
	case "open questions":
		entry.OpenQuestions = bullets(content)
	case "key files":
		entry.KeyFiles = files(content)
	}
}

func bullets(lines []string) []string {
	var items []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			items = append(items, strings.TrimSpace(line[2:]))
		}
	}
	return items
}

// files strips bullets, backticks, and a trailing " - description".
func files(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		f := strings.Trim(strings.TrimSpace(line[2:]), "`")
		if i := strings.Index(f, " - "); i >= 0 {
			f = strings.TrimSpace(f[:i])
		}
		f = strings.Trim(f, "`")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
