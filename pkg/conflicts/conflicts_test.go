package conflicts

import (
	"reflect"
	"testing"

	"github.com/cratelens/cratelens/pkg/manifest"
)

func conflictedManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Package: manifest.PackageMeta{Name: "myapp", Version: "0.1.0"},
		Dependencies: map[string]manifest.Dependency{
			"serde": manifest.Simple("^1.0.0"),
		},
		DevDependencies: map[string]manifest.Dependency{
			"serde": manifest.Simple(">=1.5.0"),
		},
	}
}

func lockfileWith(versions ...string) *manifest.Lockfile {
	lf := &manifest.Lockfile{}
	for _, v := range versions {
		lf.Packages = append(lf.Packages, manifest.LockedPackage{Name: "serde", Version: v})
	}
	return lf
}

func TestDetect(t *testing.T) {
	found := Detect(conflictedManifest(), nil)

	if len(found) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(found))
	}
	c := found[0]
	if c.Package != "serde" {
		t.Errorf("package = %q", c.Package)
	}
	if len(c.RequestedVersions) != 2 {
		t.Fatalf("requested = %+v", c.RequestedVersions)
	}

	// Ranges and requesters come out sorted.
	byRange := map[string][]string{}
	for _, r := range c.RequestedVersions {
		byRange[r.Version] = r.By
	}
	if !reflect.DeepEqual(byRange["^1.0.0"], []string{"root"}) {
		t.Errorf("^1.0.0 by %v", byRange["^1.0.0"])
	}
	if !reflect.DeepEqual(byRange[">=1.5.0"], []string{"dev"}) {
		t.Errorf(">=1.5.0 by %v", byRange[">=1.5.0"])
	}
}

func TestDetectNoConflictSameRange(t *testing.T) {
	m := conflictedManifest()
	m.DevDependencies["serde"] = manifest.Simple("^1.0.0")

	if found := Detect(m, nil); len(found) != 0 {
		t.Errorf("identical ranges are not a conflict: %+v", found)
	}
}

func TestDetectLockfileEdges(t *testing.T) {
	m := &manifest.Manifest{
		Package: manifest.PackageMeta{Name: "myapp", Version: "0.1.0"},
		Dependencies: map[string]manifest.Dependency{
			"serde": manifest.Simple("^1.0.0"),
		},
	}
	lf := &manifest.Lockfile{Packages: []manifest.LockedPackage{
		{Name: "rand", Version: "0.8.5", Dependencies: []manifest.DependencyRef{
			{Name: "serde", Version: "1.2.0"},
		}},
	}}

	found := Detect(m, lf)
	if len(found) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(found))
	}
	byRange := map[string][]string{}
	for _, r := range found[0].RequestedVersions {
		byRange[r.Version] = r.By
	}
	if !reflect.DeepEqual(byRange["1.2.0"], []string{"rand"}) {
		t.Errorf("lockfile requester = %v", byRange["1.2.0"])
	}
}

func TestResolvePicksHighestSatisfying(t *testing.T) {
	lf := lockfileWith("1.2.0", "1.6.0", "1.4.0")

	found := Resolve(conflictedManifest(), lf, DefaultStrategy)
	if len(found) != 1 || found[0].Resolution == nil {
		t.Fatalf("found = %+v", found)
	}
	r := found[0].Resolution
	if r.Version != "1.6.0" {
		t.Errorf("version = %q, want 1.6.0", r.Version)
	}
	if r.Reason != ReasonSatisfiesAll {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestResolveOrderLowest(t *testing.T) {
	lf := lockfileWith("1.5.0", "1.6.0", "1.9.0")

	strategy := Strategy{PreferStable: true, Order: OrderLowest}
	found := Resolve(conflictedManifest(), lf, strategy)
	if found[0].Resolution.Version != "1.5.0" {
		t.Errorf("version = %q, want 1.5.0", found[0].Resolution.Version)
	}
}

func TestResolvePreferStable(t *testing.T) {
	lf := lockfileWith("1.6.0", "2.0.0-beta.1")

	m := &manifest.Manifest{
		Package: manifest.PackageMeta{Name: "myapp", Version: "0.1.0"},
		Dependencies: map[string]manifest.Dependency{
			"serde": manifest.Simple(">=1.0.0-0"),
		},
		DevDependencies: map[string]manifest.Dependency{
			"serde": manifest.Simple(">=1.5.0-0"),
		},
	}

	found := Resolve(m, lf, Strategy{PreferStable: true, Order: OrderHighest})
	if got := found[0].Resolution.Version; got != "1.6.0" {
		t.Errorf("prefer-stable should pick 1.6.0 over the beta, got %q", got)
	}

	found = Resolve(m, lf, Strategy{PreferStable: false, Order: OrderHighest})
	if got := found[0].Resolution.Version; got != "2.0.0-beta.1" {
		t.Errorf("without prefer-stable the beta ranks first, got %q", got)
	}
}

func TestResolveUnsatisfiableFallsBackToTop(t *testing.T) {
	// Nothing in the pool satisfies >=1.5.0.
	lf := lockfileWith("1.2.0", "1.4.0")

	found := Resolve(conflictedManifest(), lf, DefaultStrategy)
	r := found[0].Resolution
	if r == nil {
		t.Fatal("expected a fallback resolution")
	}
	if r.Version != "1.4.0" {
		t.Errorf("fallback should be the top candidate, got %q", r.Version)
	}
	if r.Reason != ReasonUnsatisfiable {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestResolveWithoutLockfile(t *testing.T) {
	found := Resolve(conflictedManifest(), nil, DefaultStrategy)
	if found[0].Resolution != nil {
		t.Errorf("no lockfile means no resolution: %+v", found[0].Resolution)
	}
}

func TestResolveInvalidSemverSkipped(t *testing.T) {
	lf := lockfileWith("not-a-version", "1.6.0")

	found := Resolve(conflictedManifest(), lf, DefaultStrategy)
	if got := found[0].Resolution.Version; got != "1.6.0" {
		t.Errorf("invalid candidates should be skipped, got %q", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	lf := lockfileWith("1.6.0", "1.5.0", "1.7.0")
	m := conflictedManifest()

	first := Resolve(m, lf, DefaultStrategy)
	for i := 0; i < 10; i++ {
		if got := Resolve(m, lf, DefaultStrategy); !reflect.DeepEqual(got, first) {
			t.Fatal("resolution should be deterministic")
		}
	}
}
