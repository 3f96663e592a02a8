package manifest

import (
	"testing"

	"github.com/cratelens/cratelens/pkg/errors"
)

const sampleManifest = `
[package]
name = "myapp"
version = "0.1.0"
license = "MIT"

[dependencies]
serde = "1.0"
tokio = { version = "1.35", features = ["full", "rt"], optional = true }
rand = { version = "0.8", default-features = false }

[dev-dependencies]
criterion = "0.5"

[build-dependencies]
cc = "1.0"

[features]
default = ["json"]
json = ["serde/derive"]

[workspace]
members = ["crates/core"]

[workspace.dependencies]
log = "0.4"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if m.Package.Name != "myapp" || m.Package.Version != "0.1.0" {
		t.Errorf("unexpected package meta: %+v", m.Package)
	}
	if m.Package.License != "MIT" {
		t.Errorf("license = %q, want MIT", m.Package.License)
	}

	serde := m.Dependencies["serde"]
	if serde.Kind != DependencySimple || serde.Version != "1.0" {
		t.Errorf("serde = %+v, want simple 1.0", serde)
	}
	if !serde.DefaultFeatures {
		t.Error("simple dependencies should keep default features")
	}

	tokio := m.Dependencies["tokio"]
	if tokio.Kind != DependencyDetailed {
		t.Fatalf("tokio kind = %v, want detailed", tokio.Kind)
	}
	if tokio.Version != "1.35" || !tokio.Optional {
		t.Errorf("tokio = %+v", tokio)
	}
	if len(tokio.Features) != 2 || tokio.Features[0] != "full" || tokio.Features[1] != "rt" {
		t.Errorf("tokio features = %v", tokio.Features)
	}

	rand := m.Dependencies["rand"]
	if rand.DefaultFeatures {
		t.Error("default-features = false should be honored")
	}

	if _, ok := m.DevDependencies["criterion"]; !ok {
		t.Error("missing dev-dependency criterion")
	}
	if _, ok := m.BuildDependencies["cc"]; !ok {
		t.Error("missing build-dependency cc")
	}

	if m.Workspace == nil {
		t.Fatal("missing workspace section")
	}
	if _, ok := m.Workspace.Dependencies["log"]; !ok {
		t.Error("missing workspace dependency log")
	}

	if got := m.Features["json"]; len(got) != 1 || got[0] != "serde/derive" {
		t.Errorf("features[json] = %v", got)
	}
}

func TestParseUnderscoreDefaultFeatures(t *testing.T) {
	// Older manifests spell it default_features.
	m, err := Parse([]byte(`
[package]
name = "app"
version = "0.1.0"

[dependencies]
rand = { version = "0.8", default_features = false }
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.Dependencies["rand"].DefaultFeatures {
		t.Error("default_features = false should be honored")
	}
}

func TestParseMalformedEntry(t *testing.T) {
	// An array is neither of the two declared shapes. The entry decodes as
	// invalid; the parse itself succeeds.
	m, err := Parse([]byte(`
[package]
name = "app"
version = "0.1.0"

[dependencies]
broken = [1, 2]
serde = "1.0"
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.Dependencies["broken"].Valid() {
		t.Error("array entry should decode as invalid")
	}
	if !m.Dependencies["serde"].Valid() {
		t.Error("valid sibling entry should survive")
	}
}

func TestParseHardErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not toml", "{{{{"},
		{"missing package", "[dependencies]\nserde = \"1.0\"\n"},
		{"empty package name", "[package]\nversion = \"0.1.0\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("code = %v, want INVALID_MANIFEST", errors.GetCode(err))
			}
		})
	}
}

func TestVersionOrWildcard(t *testing.T) {
	if got := (Dependency{Kind: DependencyDetailed, DefaultFeatures: true}).VersionOrWildcard(); got != "*" {
		t.Errorf("empty version = %q, want *", got)
	}
	if got := Simple("1.2").VersionOrWildcard(); got != "1.2" {
		t.Errorf("got %q, want 1.2", got)
	}
}

const sampleLockfile = `
version = 3

[[package]]
name = "myapp"
version = "0.1.0"
dependencies = [
  "serde 1.0.193",
  "rand",
]

[[package]]
name = "serde"
version = "1.0.193"

[[package]]
name = "rand"
version = "0.8.5"
dependencies = [
  "serde 1.0.100 registry+https://github.com/rust-lang/crates.io-index",
]

[[package]]
name = "serde"
version = "1.0.100"

[[package]]
name = "serde"
version = "1.0.193"
`

func TestParseLockfile(t *testing.T) {
	lf, err := ParseLockfile([]byte(sampleLockfile))
	if err != nil {
		t.Fatalf("ParseLockfile error: %v", err)
	}
	if len(lf.Packages) != 5 {
		t.Fatalf("packages = %d, want 5", len(lf.Packages))
	}

	app := lf.Packages[0]
	if len(app.Dependencies) != 2 {
		t.Fatalf("app dependencies = %d, want 2", len(app.Dependencies))
	}
	if app.Dependencies[0].Name != "serde" || app.Dependencies[0].Version != "1.0.193" {
		t.Errorf("dep[0] = %+v", app.Dependencies[0])
	}
	if app.Dependencies[1].Name != "rand" || app.Dependencies[1].Version != "" {
		t.Errorf("dep[1] = %+v", app.Dependencies[1])
	}

	// Source URL after the version is dropped.
	randDep := lf.Packages[2].Dependencies[0]
	if randDep.Name != "serde" || randDep.Version != "1.0.100" {
		t.Errorf("rand dep = %+v", randDep)
	}
}

func TestLockfileVersions(t *testing.T) {
	lf, err := ParseLockfile([]byte(sampleLockfile))
	if err != nil {
		t.Fatalf("ParseLockfile error: %v", err)
	}

	// Distinct versions in lockfile order, duplicates dropped.
	got := lf.Versions("serde")
	want := []string{"1.0.193", "1.0.100"}
	if len(got) != len(want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if vs := lf.Versions("nope"); vs != nil {
		t.Errorf("unknown package should have no versions: %v", vs)
	}
}

func TestParseLockfileInvalid(t *testing.T) {
	_, err := ParseLockfile([]byte("{{{{"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidLockfile) {
		t.Errorf("code = %v, want INVALID_LOCKFILE", errors.GetCode(err))
	}
}
