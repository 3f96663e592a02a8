package advisories

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeFeed serves a canned advisory database and counts fetches.
type fakeFeed struct {
	db    map[string][]Advisory
	err   error
	calls int
}

func (f *fakeFeed) Advisories(ctx context.Context) (map[string][]Advisory, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.db, nil
}

func TestAffects(t *testing.T) {
	tests := []struct {
		pattern string
		version string
		want    bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0.1", false},
		{"*", "0.4.17", true},
		// Range operators are stripped from the pattern before comparing.
		{"^1.0.0", "1.0.0", true},
		{"~1.2.3", "1.2.3", true},
		{">=2.0.0", "2.0.0", true},
		{"<1.0.0", "1.0.0", true},
		// Dependency versions come straight from the manifest and may be
		// ranges themselves; operators are stripped from that side too.
		{"1.0.0", "^1.0.0", true},
		{"1.0.0", "~1.0.0", true},
		{"1.0.0", ">=1.0.0", true},
		{"1.0.0", "^1.0.1", false},
		{"1.2", "^1.2.3", true},
		// Prefix matches stop at component boundaries.
		{"1.2", "1.2.3", true},
		{"1.2", "1.22.0", false},
		{"1.2", "1.2", true},
		{"", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.version, func(t *testing.T) {
			adv := Advisory{Versions: []string{tt.pattern}}
			if got := Affects(adv, tt.version); got != tt.want {
				t.Errorf("Affects(%q, %q) = %v, want %v", tt.pattern, tt.version, got, tt.want)
			}
		})
	}
}

func TestScanSeveritySort(t *testing.T) {
	feed := &fakeFeed{db: map[string][]Advisory{
		"alpha": {
			{ID: "RUSTSEC-0001", Package: "alpha", Severity: SeverityLow, Title: "low", Versions: []string{"*"}},
			{ID: "RUSTSEC-0002", Package: "alpha", Severity: SeverityCritical, Title: "crit", Versions: []string{"*"}},
		},
		"beta": {
			{ID: "RUSTSEC-0003", Package: "beta", Severity: SeverityHigh, Title: "high", Versions: []string{"*"}},
			{ID: "RUSTSEC-0004", Package: "beta", Severity: SeverityMedium, Title: "med", Versions: []string{"*"}},
		},
	}}
	s := NewScanner(feed)

	vulns, err := s.Scan(context.Background(), []Dependency{
		{Name: "alpha", Version: "1.0.0"},
		{Name: "beta", Version: "2.0.0"},
		{Name: "clean", Version: "3.0.0"},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	wantIDs := []string{"RUSTSEC-0002", "RUSTSEC-0003", "RUSTSEC-0004", "RUSTSEC-0001"}
	if len(vulns) != len(wantIDs) {
		t.Fatalf("findings = %d, want %d: %+v", len(vulns), len(wantIDs), vulns)
	}
	for i, want := range wantIDs {
		if vulns[i].ID != want {
			t.Errorf("vulns[%d] = %s, want %s", i, vulns[i].ID, want)
		}
	}
}

func TestScanMatchesRangedDependency(t *testing.T) {
	feed := &fakeFeed{db: map[string][]Advisory{
		"serde": {{ID: "RUSTSEC-0010", Package: "serde", Severity: SeverityHigh, Title: "uaf", Versions: []string{"1.0.0"}}},
	}}
	s := NewScanner(feed)

	// Graph nodes carry declared ranges, not resolved versions.
	vulns, err := s.Scan(context.Background(), []Dependency{{Name: "serde", Version: "^1.0.0"}})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(vulns) != 1 {
		t.Fatalf("findings = %+v, want 1", vulns)
	}
	if vulns[0].ID != "RUSTSEC-0010" || vulns[0].Version != "^1.0.0" {
		t.Errorf("finding = %+v", vulns[0])
	}
}

func TestScanNoFindings(t *testing.T) {
	feed := &fakeFeed{db: map[string][]Advisory{
		"alpha": {{ID: "RUSTSEC-0001", Package: "alpha", Severity: SeverityHigh, Versions: []string{"2.0.0"}}},
	}}
	s := NewScanner(feed)

	vulns, err := s.Scan(context.Background(), []Dependency{{Name: "alpha", Version: "1.0.0"}})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(vulns) != 0 {
		t.Errorf("findings = %+v, want none", vulns)
	}
}

func TestScannerCachesFeed(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{db: map[string][]Advisory{}}
	s := NewScanner(feed, WithClock(func() time.Time { return now }))

	deps := []Dependency{{Name: "alpha", Version: "1.0.0"}}
	for i := 0; i < 3; i++ {
		if _, err := s.Scan(context.Background(), deps); err != nil {
			t.Fatalf("Scan error: %v", err)
		}
	}
	if feed.calls != 1 {
		t.Errorf("feed fetches = %d, want 1 within TTL", feed.calls)
	}
}

func TestScannerRefreshesAfterTTL(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{db: map[string][]Advisory{}}
	s := NewScanner(feed, WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	deps := []Dependency{{Name: "alpha", Version: "1.0.0"}}
	if _, err := s.Scan(context.Background(), deps); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.Scan(context.Background(), deps); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if feed.calls != 2 {
		t.Errorf("feed fetches = %d, want 2 after TTL", feed.calls)
	}
}

func TestScannerFallsBackToStaleFeed(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{db: map[string][]Advisory{
		"alpha": {{ID: "RUSTSEC-0001", Package: "alpha", Severity: SeverityHigh, Versions: []string{"*"}}},
	}}
	s := NewScanner(feed, WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	deps := []Dependency{{Name: "alpha", Version: "1.0.0"}}
	if _, err := s.Scan(context.Background(), deps); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	// Feed goes down after expiry; the stale copy still serves.
	feed.err = errors.New("feed down")
	now = now.Add(2 * time.Hour)
	vulns, err := s.Scan(context.Background(), deps)
	if err != nil {
		t.Fatalf("Scan should fall back to the stale feed: %v", err)
	}
	if len(vulns) != 1 {
		t.Errorf("findings = %+v", vulns)
	}
}

func TestScannerErrorsWithoutCache(t *testing.T) {
	feed := &fakeFeed{err: errors.New("feed down")}
	s := NewScanner(feed)

	if _, err := s.Scan(context.Background(), nil); err == nil {
		t.Fatal("expected error when no cached feed exists")
	}
}
