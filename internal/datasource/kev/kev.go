// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package kev serves the CISA Known Exploited Vulnerabilities catalog as an
// exploit-intelligence source.
package kev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/cache"
	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const (
	cacheFilename   = "known_exploited_vulnerabilities.json"
	primaryURL      = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	fallbackURL     = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"
	maxResponseSize = 50 * 1024 * 1024 // 50 MB
)

// Entry is a single entry in the KEV catalog.
type Entry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	DateAdded                  string `json:"dateAdded"`
	DueDate                    string `json:"dueDate"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
}

// Catalog is the KEV catalog JSON document.
type Catalog struct {
	CatalogVersion  string  `json:"catalogVersion"`
	DateReleased    string  `json:"dateReleased"`
	Count           int     `json:"count"`
	Vulnerabilities []Entry `json:"vulnerabilities"`
}

// Source provides access to KEV data with caching support.
type Source struct {
	cache   *cache.Cache
	client  *http.Client
	urls    []string
	entries map[string]Entry
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithURLs replaces the feed URLs, tried in order.
func WithURLs(urls ...string) Option {
	return func(s *Source) { s.urls = urls }
}

// NewSource creates a KEV source with its cache under cacheDir/kev/.
func NewSource(cacheDir string, opts ...Option) *Source {
	s := &Source{
		cache:   cache.New(filepath.Join(cacheDir, "kev")),
		client:  &http.Client{Timeout: 60 * time.Second},
		urls:    []string{primaryURL, fallbackURL},
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches KEV data, using cache when appropriate.
//
// Logic:
//  1. If skipUpdate and cache exists -> load from cache.
//  2. If cache is fresh -> load from cache.
//  3. Download fresh data; on success store it in the cache.
//  4. If download fails and cache exists -> warn, load the stale cache.
//  5. If download fails and no cache -> return error.
func (s *Source) Load(ctx context.Context, skipUpdate bool) error {
	if skipUpdate && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}

	if s.cache.IsFresh(cacheFilename) {
		return s.loadFromCache()
	}

	data, url, err := s.download(ctx)
	if err == nil {
		if storeErr := s.cache.Store(cacheFilename, url, data); storeErr != nil {
			return fmt.Errorf("storing KEV data in cache: %w", storeErr)
		}
		return s.parseJSON(data)
	}

	if s.cache.Exists(cacheFilename) {
		slog.Warn("failed to download KEV data, using stale cache", "err", err)
		return s.loadFromCache()
	}

	return fmt.Errorf("downloading KEV data: %w", err)
}

// Entry returns the KEV entry for the given CVE ID, or nil if not listed.
func (s *Source) Entry(cveID string) *Entry {
	entry, ok := s.entries[cveID]
	if !ok {
		return nil
	}
	return &entry
}

// Lookup implements exploit.Lookup. A KEV listing means the CVE is
// exploited in the wild, reported as a weaponized exploit. CVEs not in the
// catalog yield no data so other sources may still answer.
func (s *Source) Lookup(_ context.Context, cveID string) (*exploit.Info, error) {
	if s.Entry(cveID) == nil {
		return nil, nil
	}
	return &exploit.Info{Available: true, Maturity: types.MaturityWeaponized}, nil
}

// Len returns the number of catalog entries loaded.
func (s *Source) Len() int { return len(s.entries) }

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading KEV data from cache: %w", err)
	}
	return s.parseJSON(data)
}

// download tries each configured URL in order and returns the first body.
func (s *Source) download(ctx context.Context) ([]byte, string, error) {
	var lastErr error
	for _, url := range s.urls {
		data, err := s.downloadFrom(ctx, url)
		if err == nil {
			return data, url, nil
		}
		if lastErr == nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("%w; %v", lastErr, err)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no KEV feed URL configured")
	}
	return nil, "", lastErr
}

func (s *Source) downloadFrom(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

func (s *Source) parseJSON(data []byte) error {
	s.entries = make(map[string]Entry)

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("unmarshaling KEV catalog: %w", err)
	}
	for _, vuln := range catalog.Vulnerabilities {
		s.entries[vuln.CVEID] = vuln
	}
	return nil
}
