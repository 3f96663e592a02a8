package manifest

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cratelens/cratelens/pkg/errors"
)

// UnmarshalTOML decodes a dependency entry from either of its two declared
// shapes. Unrecognized shapes decode as DependencyInvalid instead of failing
// so that one malformed entry never aborts the whole manifest.
func (d *Dependency) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		*d = Simple(val)
	case map[string]any:
		dep := Dependency{Kind: DependencyDetailed, DefaultFeatures: true}
		if s, ok := val["version"].(string); ok {
			dep.Version = s
		}
		if raw, ok := val["features"].([]any); ok {
			for _, f := range raw {
				if s, ok := f.(string); ok {
					dep.Features = append(dep.Features, s)
				}
			}
		}
		if b, ok := val["optional"].(bool); ok {
			dep.Optional = b
		}
		if b, ok := val["default-features"].(bool); ok {
			dep.DefaultFeatures = b
		} else if b, ok := val["default_features"].(bool); ok {
			dep.DefaultFeatures = b
		}
		*d = dep
	default:
		*d = Dependency{Kind: DependencyInvalid}
	}
	return nil
}

// tomlManifest mirrors the Cargo.toml layout for decoding.
type tomlManifest struct {
	Package           *PackageMeta          `toml:"package"`
	Dependencies      map[string]Dependency `toml:"dependencies"`
	DevDependencies   map[string]Dependency `toml:"dev-dependencies"`
	BuildDependencies map[string]Dependency `toml:"build-dependencies"`
	Workspace         *tomlWorkspace        `toml:"workspace"`
	Features          map[string][]string   `toml:"features"`
}

type tomlWorkspace struct {
	Members      []string              `toml:"members"`
	Dependencies map[string]Dependency `toml:"dependencies"`
}

// Parse decodes Cargo.toml bytes into a Manifest.
//
// A structurally invalid document or a missing [package] table is a hard
// error (ErrCodeInvalidManifest); per-entry problems are left in place as
// DependencyInvalid entries for the graph builder to skip.
func Parse(data []byte) (*Manifest, error) {
	var raw tomlManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest")
	}
	if raw.Package == nil || raw.Package.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "missing [package] table")
	}

	m := &Manifest{
		Package:           *raw.Package,
		Dependencies:      raw.Dependencies,
		DevDependencies:   raw.DevDependencies,
		BuildDependencies: raw.BuildDependencies,
		Features:          raw.Features,
	}
	if raw.Workspace != nil {
		m.Workspace = &Workspace{
			Members:      raw.Workspace.Members,
			Dependencies: raw.Workspace.Dependencies,
		}
	}
	return m, nil
}

// Load reads and parses a Cargo.toml file.
func Load(path string) (*Manifest, error) {
	if err := errors.ValidateManifestPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest not found: %s", path)
		}
		return nil, err
	}
	return Parse(data)
}
