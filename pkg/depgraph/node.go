package depgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeKind distinguishes the three node variants of the dependency graph.
type NodeKind int

const (
	// KindCrate is a declared package dependency.
	KindCrate NodeKind = iota
	// KindFeature is a named feature flag owned by a crate node.
	KindFeature
	// KindWorkspace is the root node seeded from the manifest's own package.
	KindWorkspace
)

var kindNames = map[NodeKind]string{
	KindCrate:     "crate",
	KindFeature:   "feature",
	KindWorkspace: "workspace",
}

// String returns the serialized kind name.
func (k NodeKind) String() string { return kindNames[k] }

// MarshalJSON encodes the kind as its string name.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", s)
}

// Node is a vertex in the dependency graph.
//
// Crate and workspace nodes use composite ids of the form "name@version";
// feature node ids embed their owning crate's id as prefix:
// "name@version#feature". Ids are unique within one graph snapshot.
//
// The flag fields are unioned across dependency sections: a crate declared in
// both dependencies and dev-dependencies ends up Direct and Dev, never
// downgraded back to false.
type Node struct {
	ID      string   `json:"id"`
	Kind    NodeKind `json:"kind"`
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`

	Root     bool `json:"isRoot,omitempty"`
	Direct   bool `json:"isDirect,omitempty"`
	Dev      bool `json:"isDev,omitempty"`
	Build    bool `json:"isBuild,omitempty"`
	Optional bool `json:"isOptional,omitempty"`

	// Default marks a feature node enabled by default. Always false for
	// crate and workspace nodes.
	Default bool `json:"isDefault,omitempty"`
}

// CrateID returns the composite id for a package declared at a version.
func CrateID(name, version string) string {
	return name + "@" + version
}

// FeatureID returns the composite id for a feature owned by a crate node.
func FeatureID(crateID, feature string) string {
	return crateID + "#" + feature
}

// OwnerID returns the owning crate id embedded in a feature node id, or the
// id itself for non-feature ids.
func OwnerID(id string) string {
	owner, _, _ := strings.Cut(id, "#")
	return owner
}

// LinkType classifies an edge of the dependency graph.
type LinkType string

const (
	// LinkDepends is a hard dependency edge.
	LinkDepends LinkType = "depends"
	// LinkFeature connects a crate to a feature it exposes.
	LinkFeature LinkType = "feature"
	// LinkOptional is a dependency edge guarded by a feature flag.
	LinkOptional LinkType = "optional"
	// LinkDefault connects a crate to its implicit default feature.
	LinkDefault LinkType = "default"
)

// Link is a directed edge between two nodes of the same snapshot.
// Source and Target always resolve to node ids present in the snapshot.
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   LinkType `json:"type"`

	Required bool   `json:"required,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Feature  string `json:"feature,omitempty"`
}
