// Package advisories matches dependency versions against a security
// advisory feed.
//
// The feed is fetched through a collaborator interface and cached with an
// explicit TTL; matching is deliberately permissive so a noisy advisory is
// surfaced rather than silently missed.
package advisories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched feed stays fresh.
const DefaultTTL = 24 * time.Hour

// Severity grades an advisory.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities for display, worst first. Unrecognized
// severities sort last.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Advisory is one entry of the feed: a known vulnerability in some versions
// of a package.
type Advisory struct {
	ID       string   `json:"id"`
	Package  string   `json:"package"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	URL      string   `json:"url,omitempty"`
	// Versions lists affected version patterns: exact versions, prefixes
	// like "1.2" and the "*" wildcard.
	Versions []string `json:"versions"`
}

// Vulnerability is an advisory matched against a concrete dependency.
type Vulnerability struct {
	Package  string   `json:"package"`
	Version  string   `json:"version"`
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	URL      string   `json:"url,omitempty"`
}

// Feed supplies the advisory database keyed by package name.
type Feed interface {
	Advisories(ctx context.Context) (map[string][]Advisory, error)
}

// Dependency identifies one (package, version) to scan.
type Dependency struct {
	Name    string
	Version string
}

// Scanner matches dependencies against a cached advisory feed.
type Scanner struct {
	feed Feed
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	cached  map[string][]Advisory
	expires time.Time
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithTTL overrides the feed cache lifetime.
func WithTTL(ttl time.Duration) ScannerOption {
	return func(s *Scanner) { s.ttl = ttl }
}

// WithClock injects the time source. Tests use this to expire the cache
// without sleeping.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// NewScanner creates a Scanner over the given feed.
func NewScanner(feed Feed, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		feed: feed,
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan matches every dependency against the feed and returns the findings
// sorted by severity, worst first, then by package name and advisory ID.
//
// A feed fetch error is returned only when no cached copy exists at all; an
// expired cache is refreshed, and a failed refresh falls back to the stale
// copy rather than dropping findings.
func (s *Scanner) Scan(ctx context.Context, deps []Dependency) ([]Vulnerability, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}

	var out []Vulnerability
	for _, dep := range deps {
		for _, adv := range db[dep.Name] {
			if !Affects(adv, dep.Version) {
				continue
			}
			out = append(out, Vulnerability{
				Package:  dep.Name,
				Version:  dep.Version,
				ID:       adv.ID,
				Severity: adv.Severity,
				Title:    adv.Title,
				URL:      adv.URL,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, iOK := severityRank[out[i].Severity]
		rj, jOK := severityRank[out[j].Severity]
		if !iOK {
			ri = len(severityRank)
		}
		if !jOK {
			rj = len(severityRank)
		}
		if ri != rj {
			return ri < rj
		}
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// database returns the cached feed, refreshing it when the TTL has lapsed.
func (s *Scanner) database(ctx context.Context) (map[string][]Advisory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != nil && now.Before(s.expires) {
		return s.cached, nil
	}

	db, err := s.feed.Advisories(ctx)
	if err != nil {
		if s.cached != nil {
			return s.cached, nil
		}
		return nil, err
	}
	s.cached = db
	s.expires = now.Add(s.ttl)
	return db, nil
}

// Affects reports whether an advisory covers a dependency version. The
// version may be a declared range straight from a manifest ("^1.0.0"); range
// operators (^, ~, >=, <=, >, <, =) are stripped from both sides before
// comparing. Matching is permissive: an exact match, the "*" wildcard, or a
// prefix match at a version-component boundary all count.
func Affects(adv Advisory, version string) bool {
	for _, pattern := range adv.Versions {
		if matches(pattern, version) {
			return true
		}
	}
	return false
}

func matches(pattern, version string) bool {
	p := stripOperators(strings.TrimSpace(pattern))
	v := stripOperators(strings.TrimSpace(version))
	if p == "" {
		return false
	}
	if p == "*" || p == v {
		return true
	}
	// "1.2" matches "1.2.3" but not "1.22.0".
	return strings.HasPrefix(v, p+".")
}

func stripOperators(p string) string {
	for _, op := range []string{">=", "<=", "^", "~", ">", "<", "="} {
		if strings.HasPrefix(p, op) {
			return strings.TrimSpace(strings.TrimPrefix(p, op))
		}
	}
	return p
}
