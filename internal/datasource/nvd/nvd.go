// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package nvd queries the NVD CVE API 2.0 for exploit hints.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bonial-oss/workspace-brain/internal/exploit"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const (
	defaultBaseURL  = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 5 * 1024 * 1024 // 5 MB
)

// Response is the subset of the CVE API response that is decoded.
type Response struct {
	TotalResults    int             `json:"totalResults"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

type Vulnerability struct {
	CVE CVE `json:"cve"`
}

type CVE struct {
	ID      string                     `json:"id"`
	Metrics map[string]json.RawMessage `json:"metrics"`
}

// Client talks to the NVD CVE API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// seen memoises answered lookups so one pass asks NVD once per CVE.
	seen map[string]*exploit.Info
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIKey sends the key in the apiKey header for the higher rate limit.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		seen:    make(map[string]*exploit.Info),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the CVE record for cveID, or nil when NVD has none.
func (c *Client) Fetch(ctx context.Context, cveID string) (*CVE, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing NVD base URL: %w", err)
	}
	q := u.Query()
	q.Set("cveId", cveID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building NVD request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NVD request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("NVD returned HTTP %d for %s", resp.StatusCode, cveID)
	}

	var r Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding NVD response: %w", err)
	}
	if len(r.Vulnerabilities) == 0 {
		return nil, nil
	}
	return &r.Vulnerabilities[0].CVE, nil
}

// Lookup implements exploit.Lookup. NVD carries no exploit flag, so any
// published metrics block is read as a proof-of-concept exploit. Answers,
// including "no data", are remembered for the life of the client; failures
// are not.
func (c *Client) Lookup(ctx context.Context, cveID string) (*exploit.Info, error) {
	if info, ok := c.seen[cveID]; ok {
		return info, nil
	}
	cve, err := c.Fetch(ctx, cveID)
	if err != nil {
		return nil, err
	}
	var info *exploit.Info
	switch {
	case cve == nil:
	case len(cve.Metrics) == 0:
		info = &exploit.Info{Available: false}
	default:
		info = &exploit.Info{Available: true, Maturity: types.MaturityProofOfConcept}
	}
	c.seen[cveID] = info
	return info, nil
}
