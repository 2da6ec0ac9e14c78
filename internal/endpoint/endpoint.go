// Package endpoint holds the backend base URL shared by every HTTP adapter.
//
// A Holder is created once by the composition root, seeded with a default,
// and passed by reference into each adapter constructor. The launch sequence
// overwrites it from persisted settings before any network call is issued;
// Set is an atomic store, so a goroutine started after Set observes the new
// value.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Holder is the owned, concurrency-safe base endpoint.
type Holder struct {
	base atomic.Pointer[url.URL]
}

// New creates a Holder seeded with base.
func New(base *url.URL) *Holder {
	h := &Holder{}
	if base != nil {
		h.Set(base)
	}
	return h
}

// Parse creates a Holder from a raw URL.
func Parse(raw string) (*Holder, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	return New(u), nil
}

// ParseURL validates an absolute http(s) URL and strips trailing slashes.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// Set replaces the base endpoint. A copy is stored so callers may keep
// mutating their URL.
func (h *Holder) Set(base *url.URL) {
	cp := *base
	h.base.Store(&cp)
}

// Base returns a copy of the current base endpoint, or nil when unset.
func (h *Holder) Base() *url.URL {
	u := h.base.Load()
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// String returns the current base endpoint, or "" when unset.
func (h *Holder) String() string {
	u := h.base.Load()
	if u == nil {
		return ""
	}
	return u.String()
}

// Resolve joins path segments onto the base endpoint.
func (h *Holder) Resolve(segments ...string) (string, error) {
	u := h.Base()
	if u == nil {
		return "", fmt.Errorf("endpoint not configured")
	}
	return u.JoinPath(segments...).String(), nil
}
