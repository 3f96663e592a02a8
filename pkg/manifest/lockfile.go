package manifest

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cratelens/cratelens/pkg/errors"
)

// Lockfile is one concrete dependency-tree snapshot: a flat list of resolved
// (name, version) pairs plus their own dependency edges.
type Lockfile struct {
	Packages []LockedPackage `json:"package" toml:"package"`
}

// LockedPackage is one resolved package in a lockfile.
type LockedPackage struct {
	Name         string          `json:"name" toml:"name"`
	Version      string          `json:"version" toml:"version"`
	Dependencies []DependencyRef `json:"dependencies,omitempty" toml:"dependencies"`
}

// DependencyRef is an inter-package edge inside a lockfile.
type DependencyRef struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// UnmarshalTOML decodes a lockfile dependency edge. Cargo.lock writes these
// as strings ("serde" or "serde 1.0.193"); a table form with name/version
// keys is accepted as well.
func (r *DependencyRef) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		name, version, _ := strings.Cut(val, " ")
		r.Name = name
		// A third field (source URL) may follow the version.
		r.Version, _, _ = strings.Cut(version, " ")
	case map[string]any:
		if s, ok := val["name"].(string); ok {
			r.Name = s
		}
		if s, ok := val["version"].(string); ok {
			r.Version = s
		}
	}
	return nil
}

// ParseLockfile decodes Cargo.lock bytes into a Lockfile.
// A structurally invalid document is a hard error (ErrCodeInvalidLockfile);
// an empty package list is valid.
func ParseLockfile(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse lockfile")
	}
	return &lf, nil
}

// LoadLockfile reads and parses a Cargo.lock file.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "lockfile not found: %s", path)
		}
		return nil, err
	}
	return ParseLockfile(data)
}

// Versions returns the distinct resolved versions of the named package in
// lockfile order. Lockfile order gives conflict resolution a stable
// tie-break.
func (l *Lockfile) Versions(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range l.Packages {
		if p.Name != name || seen[p.Version] {
			continue
		}
		seen[p.Version] = true
		out = append(out, p.Version)
	}
	return out
}
