// Package manifest defines the structured manifest and lockfile model consumed
// by the analysis engine, plus TOML loaders for Cargo.toml and Cargo.lock.
//
// The engine itself never touches manifest text: it operates on [Manifest] and
// [Lockfile] values. The loaders in this package are the text-parsing
// collaborators that produce those values for the CLI and HTTP API.
//
// Dependency entries in Cargo.toml come in two shapes, a bare version string
// or a detailed table. Instead of runtime shape inspection, [Dependency] is a
// tagged union with an explicit [DependencyKind] discriminant; entries whose
// TOML value has neither shape decode as [DependencyInvalid] and are skipped
// (with a diagnostic) by the graph builder rather than failing the build.
package manifest

// PackageMeta identifies the root package of a manifest.
type PackageMeta struct {
	Name    string `json:"name" toml:"name"`
	Version string `json:"version" toml:"version"`
	License string `json:"license,omitempty" toml:"license"`
}

// Workspace holds the workspace section of a manifest.
type Workspace struct {
	Members      []string              `json:"members,omitempty"`
	Dependencies map[string]Dependency `json:"dependencies,omitempty"`
}

// Manifest is the structured description of a package: metadata, dependency
// sections, and feature declarations.
type Manifest struct {
	Package           PackageMeta           `json:"package"`
	Dependencies      map[string]Dependency `json:"dependencies,omitempty"`
	DevDependencies   map[string]Dependency `json:"devDependencies,omitempty"`
	BuildDependencies map[string]Dependency `json:"buildDependencies,omitempty"`
	Workspace         *Workspace            `json:"workspace,omitempty"`

	// Features maps a feature name to its requirement strings. Requirements
	// use the `dep/feature` or `dep=feature` syntax for cross-crate features
	// and a bare feature name for same-crate ones. The special "default"
	// entry lists the features enabled by default.
	Features map[string][]string `json:"features,omitempty"`
}

// DependencyKind discriminates the two declared shapes of a dependency entry.
type DependencyKind int

const (
	// DependencyInvalid marks an entry whose TOML value had neither the
	// string nor the table shape. The graph builder skips these.
	DependencyInvalid DependencyKind = iota
	// DependencySimple is a bare version string ("1.0" or "^1.2.3").
	DependencySimple
	// DependencyDetailed is a table with version, features, optional and
	// default-features fields.
	DependencyDetailed
)

// Dependency is one entry of a dependency section.
//
// For DependencySimple only Version is meaningful. DefaultFeatures is true
// unless the detailed form sets `default-features = false`.
type Dependency struct {
	Kind            DependencyKind `json:"kind"`
	Version         string         `json:"version,omitempty"`
	Features        []string       `json:"features,omitempty"`
	Optional        bool           `json:"optional,omitempty"`
	DefaultFeatures bool           `json:"defaultFeatures"`
}

// Simple constructs a bare version-string dependency.
func Simple(version string) Dependency {
	return Dependency{Kind: DependencySimple, Version: version, DefaultFeatures: true}
}

// Detailed constructs a detailed dependency entry.
func Detailed(version string, features []string, optional, defaultFeatures bool) Dependency {
	return Dependency{
		Kind:            DependencyDetailed,
		Version:         version,
		Features:        features,
		Optional:        optional,
		DefaultFeatures: defaultFeatures,
	}
}

// Valid reports whether the entry decoded with a recognized shape.
func (d Dependency) Valid() bool { return d.Kind != DependencyInvalid }

// VersionOrWildcard returns the declared version, or "*" when none was given.
// Distinct declared versions of the same package stay distinct graph nodes:
// the graph mirrors declarations, not one resolved reality.
func (d Dependency) VersionOrWildcard() string {
	if d.Version == "" {
		return "*"
	}
	return d.Version
}
