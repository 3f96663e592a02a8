package licenses

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeRegistry serves canned license strings and counts lookups.
type fakeRegistry struct {
	mu       sync.Mutex
	licenses map[string]string
	fail     map[string]bool
	calls    int
}

func (f *fakeRegistry) License(ctx context.Context, name, version string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[name] {
		return "", errors.New("boom")
	}
	return f.licenses[name+"@"+version], nil
}

func TestAnalyze(t *testing.T) {
	reg := &fakeRegistry{licenses: map[string]string{
		"serde@1.0":    "MIT OR Apache-2.0",
		"openssl@0.1":  "Apache-2.0",
		"copyleft@2.0": "GPL-3.0",
		"sspl@1.0":     "SSPL-1.0",
	}}
	a := NewAnalyzer(reg)

	infos, summary := a.Analyze(context.Background(), "MIT", []Dependency{
		{Name: "serde", Version: "1.0"},
		{Name: "openssl", Version: "0.1"},
		{Name: "copyleft", Version: "2.0"},
		{Name: "sspl", Version: "1.0"},
	})

	if summary.Total != 4 || summary.Approved != 2 || summary.Copyleft != 1 || summary.Banned != 1 {
		t.Errorf("summary = %+v", summary)
	}

	// Display order: banned, copyleft, unknown, approved.
	wantOrder := []string{"sspl", "copyleft", "openssl", "serde"}
	for i, want := range wantOrder {
		if infos[i].Package != want {
			t.Fatalf("infos[%d] = %s, want %s (full: %+v)", i, infos[i].Package, want, infos)
		}
	}

	if !infos[3].Compatible {
		t.Error("MIT OR Apache-2.0 should be compatible with an MIT project")
	}
	if infos[1].Compatible {
		t.Error("GPL-3.0 should not be compatible with an MIT project")
	}
}

func TestAnalyzeLookupFailureDegrades(t *testing.T) {
	var logged []string
	reg := &fakeRegistry{
		licenses: map[string]string{"serde@1.0": "MIT"},
		fail:     map[string]bool{"broken": true},
	}
	a := NewAnalyzer(reg, WithLogger(func(format string, args ...any) {
		logged = append(logged, format)
	}))

	infos, summary := a.Analyze(context.Background(), "MIT", []Dependency{
		{Name: "broken", Version: "1.0"},
		{Name: "serde", Version: "1.0"},
	})

	if summary.Unknown != 1 {
		t.Errorf("summary = %+v, want one unknown", summary)
	}
	// Failed lookups sort into the unknown bucket, before approved.
	if infos[0].Package != "broken" || infos[0].License != "unknown" || infos[0].Category != CategoryUnknown {
		t.Errorf("degraded entry = %+v", infos[0])
	}
	if infos[1].Package != "serde" {
		t.Errorf("batch should continue past the failure: %+v", infos)
	}
	if len(logged) == 0 {
		t.Error("failed lookup should be logged")
	}
}

func TestAnalyzeMemoization(t *testing.T) {
	reg := &fakeRegistry{licenses: map[string]string{"serde@1.0": "MIT"}}
	a := NewAnalyzer(reg)

	deps := []Dependency{{Name: "serde", Version: "1.0"}}
	a.Analyze(context.Background(), "MIT", deps)
	a.Analyze(context.Background(), "MIT", deps)
	a.Analyze(context.Background(), "MIT", deps)

	if reg.calls != 1 {
		t.Errorf("registry calls = %d, want 1 (memoized)", reg.calls)
	}
}

func TestAnalyzeFailuresAreNotMemoized(t *testing.T) {
	reg := &fakeRegistry{fail: map[string]bool{"flaky": true}}
	a := NewAnalyzer(reg)

	deps := []Dependency{{Name: "flaky", Version: "1.0"}}
	a.Analyze(context.Background(), "MIT", deps)

	// The dependency recovers; the next batch must retry it.
	reg.mu.Lock()
	reg.fail["flaky"] = false
	reg.licenses = map[string]string{"flaky@1.0": "MIT"}
	reg.mu.Unlock()

	infos, _ := a.Analyze(context.Background(), "MIT", deps)
	if infos[0].License != "MIT" {
		t.Errorf("recovered lookup = %+v", infos[0])
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := NewAnalyzer(&fakeRegistry{})
	infos, summary := a.Analyze(context.Background(), "MIT", nil)
	if len(infos) != 0 || summary.Total != 0 {
		t.Errorf("empty batch: infos=%v summary=%+v", infos, summary)
	}
}
