// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package exploit defines the exploit-intelligence capability used by the
// risk engine and a few ways of composing it.
package exploit

import (
	"context"
	"log/slog"
)

// Info is what an intelligence source knows about exploitation of a CVE.
type Info struct {
	Available bool
	Maturity  string
}

// Lookup returns exploit information for a CVE id. A nil Info with a nil
// error means the source has no data for the CVE.
type Lookup interface {
	Lookup(ctx context.Context, cveID string) (*Info, error)
}

// Func adapts a plain function to Lookup.
type Func func(ctx context.Context, cveID string) (*Info, error)

func (f Func) Lookup(ctx context.Context, cveID string) (*Info, error) {
	return f(ctx, cveID)
}

type chain []Lookup

// Chain queries each lookup in order and returns the first result that
// reports an available exploit. Failing lookups are skipped.
func Chain(lookups ...Lookup) Lookup {
	var c chain
	for _, l := range lookups {
		if l != nil {
			c = append(c, l)
		}
	}
	return c
}

func (c chain) Lookup(ctx context.Context, cveID string) (*Info, error) {
	var fallback *Info
	for _, l := range c {
		info, err := l.Lookup(ctx, cveID)
		if err != nil {
			slog.Debug("exploit lookup failed", "cve", cveID, "err", err)
			continue
		}
		if info == nil {
			continue
		}
		if info.Available {
			return info, nil
		}
		if fallback == nil {
			fallback = info
		}
	}
	return fallback, nil
}
