package depgraph

import (
	"testing"

	"github.com/cratelens/cratelens/pkg/manifest"
)

func featureManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Package: manifest.PackageMeta{Name: "myapp", Version: "0.1.0"},
		Dependencies: map[string]manifest.Dependency{
			"serde": manifest.Detailed("1.0", []string{"derive"}, false, false),
		},
		Features: map[string][]string{
			"default": {"json"},
			"json":    {"pretty", "serde/derive"},
			"pretty":  {},
		},
	}
}

func TestResolveFeaturesSameCrate(t *testing.T) {
	m := featureManifest()
	g := Build(m)
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	// json -> pretty inside the root crate.
	if !g.HasLink("myapp@0.1.0#json", "myapp@0.1.0#pretty", LinkDepends) {
		t.Error("missing same-crate requirement link")
	}
}

func TestResolveFeaturesCrossCrate(t *testing.T) {
	m := featureManifest()
	g := Build(m)
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	// json -> serde/derive through the depends link from the root.
	if !g.HasLink("myapp@0.1.0#json", "serde@1.0#derive", LinkDepends) {
		t.Error("missing cross-crate requirement link")
	}
}

func TestResolveFeaturesEqualsSyntax(t *testing.T) {
	m := featureManifest()
	m.Features["json"] = []string{"serde=derive"}
	g := Build(m)
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	if !g.HasLink("myapp@0.1.0#json", "serde@1.0#derive", LinkDepends) {
		t.Error("dep=feature syntax should resolve like dep/feature")
	}
}

func TestResolveFeaturesMissingFeatureDropsWithDiagnostic(t *testing.T) {
	m := featureManifest()
	m.Features["json"] = []string{"nope"}
	g := Build(m)
	before := g.LinkCount()
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	for _, l := range g.Links()[before:] {
		if l.Source == "myapp@0.1.0#json" && l.Type == LinkDepends {
			t.Errorf("unresolved requirement should not add a link: %+v", l)
		}
	}

	found := false
	for _, d := range g.Diagnostics() {
		if d.Kind == DiagUnresolvedRequirement && d.Subject == "myapp@0.1.0#json" {
			found = true
		}
	}
	if !found {
		t.Error("missing unresolved-requirement diagnostic")
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestResolveFeaturesUnknownDependency(t *testing.T) {
	m := featureManifest()
	m.Features["json"] = []string{"missingcrate/feat"}
	g := Build(m)
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	found := false
	for _, d := range g.Diagnostics() {
		if d.Kind == DiagUnknownDependency {
			found = true
		}
	}
	if !found {
		t.Error("missing unknown-dependency diagnostic")
	}
}

func TestResolveFeaturesSelfRequirementSkipped(t *testing.T) {
	m := featureManifest()
	m.Features["json"] = []string{"json"}
	g := Build(m)
	ResolveFeatures(g, FeatureTables{"myapp": RootFeatureTable(m)})

	if g.HasLink("myapp@0.1.0#json", "myapp@0.1.0#json", LinkDepends) {
		t.Error("feature must not depend on itself")
	}
}

func TestResolveFeaturesDependencyTables(t *testing.T) {
	// A registry-supplied table for serde marks derive as default.
	m := featureManifest()
	g := Build(m)
	tables := FeatureTables{
		"myapp": RootFeatureTable(m),
		"serde": {"derive": {Default: true}},
	}
	ResolveFeatures(g, tables)

	if !g.HasLink("serde@1.0", "serde@1.0#derive", LinkDefault) {
		t.Error("missing default link from dependency table")
	}
}

func TestRootFeatureTable(t *testing.T) {
	m := featureManifest()
	table := RootFeatureTable(m)

	if !table["default"].Default {
		t.Error("default entry should be marked default")
	}
	if !table["json"].Default {
		t.Error("members of the default list should be marked default")
	}
	if table["pretty"].Default {
		t.Error("pretty is not a default feature")
	}
	if len(table["json"].Requires) != 2 {
		t.Errorf("json requires = %v", table["json"].Requires)
	}

	if RootFeatureTable(&manifest.Manifest{}) != nil {
		t.Error("featureless manifest should have no table")
	}
}
