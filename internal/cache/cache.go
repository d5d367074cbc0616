// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultTTL = 24 * time.Hour

// Metadata records when a cached file was fetched.
type Metadata struct {
	DownloadedAt string `json:"downloaded_at"`
	Source       string `json:"source,omitempty"`
}

// Cache stores downloaded feeds in a directory with one metadata file per
// entry, so feeds sharing a directory age independently.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long an entry stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func New(dir string, opts ...Option) *Cache {
	c := &Cache{dir: dir, ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// IsFresh reports whether filename was stored less than the TTL ago.
func (c *Cache) IsFresh(filename string) bool {
	meta, err := c.loadMetadata(filename)
	if err != nil {
		return false
	}
	downloadedAt, err := time.Parse(time.RFC3339, meta.DownloadedAt)
	if err != nil {
		return false
	}
	return c.now().Sub(downloadedAt) < c.ttl
}

// Store writes data for filename and stamps its metadata. source is the URL
// the data came from and may be empty.
func (c *Cache) Store(filename, source string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("writing cache data: %w", err)
	}
	meta := Metadata{
		DownloadedAt: c.now().UTC().Format(time.RFC3339),
		Source:       source,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(c.metadataPath(filename), metaBytes, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

func (c *Cache) Load(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.dir, filename))
}

func (c *Cache) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(c.dir, filename))
	return err == nil
}

// Metadata returns the stored metadata for filename.
func (c *Cache) Metadata(filename string) (*Metadata, error) {
	return c.loadMetadata(filename)
}

func (c *Cache) metadataPath(filename string) string {
	return filepath.Join(c.dir, filename+".meta.json")
}

func (c *Cache) loadMetadata(filename string) (*Metadata, error) {
	data, err := os.ReadFile(c.metadataPath(filename))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
