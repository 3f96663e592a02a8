package depgraph

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/cratelens/cratelens/pkg/manifest"
)

// FeatureDef is one entry of a crate's feature-definition table.
type FeatureDef struct {
	// Requires lists the features this feature turns on. Same-crate
	// requirements are bare names; cross-crate ones use the `dep/feature`
	// or `dep=feature` syntax.
	Requires []string `json:"requires,omitempty"`
	// Default marks a feature enabled by default.
	Default bool `json:"default,omitempty"`
}

// FeatureTable maps feature names to their definitions for one crate.
type FeatureTable map[string]FeatureDef

// FeatureTables maps crate names to their feature tables. The root crate's
// table comes from the manifest; tables for dependencies may be supplied
// from registry metadata when available.
type FeatureTables map[string]FeatureTable

// RootFeatureTable derives the root crate's feature table from the
// manifest's features section. Members of the "default" list are marked
// default, as is the "default" feature itself.
func RootFeatureTable(m *manifest.Manifest) FeatureTable {
	if len(m.Features) == 0 {
		return nil
	}
	defaults := make(map[string]bool)
	for _, f := range m.Features["default"] {
		defaults[f] = true
	}
	table := make(FeatureTable, len(m.Features))
	for name, requires := range m.Features {
		table[name] = FeatureDef{
			Requires: requires,
			Default:  name == "default" || defaults[name],
		}
	}
	return table
}

// ResolveFeatures is the second pass of graph construction: it links feature
// nodes to the features they require and ensures default-feature edges exist.
//
// It must run after [Build] because cross-crate requirements are resolved
// through the depends links the first pass produced. A requirement whose
// target feature is not found in either scope is dropped with a diagnostic —
// no edge, no error — since manifests are routinely partial. The pass never
// creates a link whose endpoint node does not exist.
func ResolveFeatures(g *Graph, tables FeatureTables) {
	for _, fn := range g.Features() {
		ownerID := OwnerID(fn.ID)
		owner, ok := g.Node(ownerID)
		if !ok {
			continue
		}
		def, ok := tables[owner.Name][fn.Name]
		if !ok {
			continue
		}
		for _, req := range def.Requires {
			resolveRequirement(g, fn, owner, req)
		}
	}

	ensureDefaultLinks(g, tables)
}

// resolveRequirement resolves one requirement string of a feature node.
func resolveRequirement(g *Graph, fn *Node, owner *Node, req string) {
	depName, featName, cross := strings.Cut(req, "/")
	if !cross {
		depName, featName, cross = strings.Cut(req, "=")
	}

	if !cross {
		// Same-crate feature.
		target := FeatureID(owner.ID, req)
		if target == fn.ID {
			return
		}
		if _, ok := g.Node(target); !ok {
			g.addDiagnostic(Diagnostic{
				Kind:    DiagUnresolvedRequirement,
				Subject: fn.ID,
				Detail:  fmt.Sprintf("feature %q not found in crate %s", req, owner.Name),
			})
			return
		}
		addLinkOnce(g, Link{Source: fn.ID, Target: target, Type: LinkDepends, Required: true, Feature: req})
		return
	}

	// Cross-crate: locate the depends link from the owning crate to the
	// named dependency, then link into that crate's feature.
	depNode := dependencyByName(g, owner.ID, depName)
	if depNode == nil {
		g.addDiagnostic(Diagnostic{
			Kind:    DiagUnknownDependency,
			Subject: fn.ID,
			Detail:  fmt.Sprintf("crate %s has no dependency %q", owner.Name, depName),
		})
		return
	}

	target := FeatureID(depNode.ID, featName)
	if _, ok := g.Node(target); !ok {
		g.addDiagnostic(Diagnostic{
			Kind:    DiagUnresolvedRequirement,
			Subject: fn.ID,
			Detail:  fmt.Sprintf("feature %q not found in dependency %s", featName, depName),
		})
		return
	}
	addLinkOnce(g, Link{Source: fn.ID, Target: target, Type: LinkDepends, Required: true, Feature: featName})
}

// dependencyByName follows the owner's outgoing depends/optional links to
// find the crate node for a named dependency.
func dependencyByName(g *Graph, ownerID, name string) *Node {
	for _, l := range g.Outgoing(ownerID) {
		if l.Type != LinkDepends && l.Type != LinkOptional {
			continue
		}
		if n, ok := g.Node(l.Target); ok && n.Kind != KindFeature && n.Name == name {
			return n
		}
	}
	return nil
}

// ensureDefaultLinks adds a crate→feature default link for every table entry
// marked default, for each declared version of that crate present in the
// graph.
func ensureDefaultLinks(g *Graph, tables FeatureTables) {
	crateNames := maps.Keys(tables)
	slices.Sort(crateNames)
	for _, crateName := range crateNames {
		table := tables[crateName]
		featNames := maps.Keys(table)
		slices.Sort(featNames)
		for _, n := range g.Nodes() {
			if n.Kind == KindFeature || n.Name != crateName {
				continue
			}
			for _, featName := range featNames {
				if !table[featName].Default {
					continue
				}
				fid := FeatureID(n.ID, featName)
				if _, ok := g.Node(fid); !ok {
					continue
				}
				if !g.HasLink(n.ID, fid, LinkDefault) {
					_ = g.AddLink(Link{Source: n.ID, Target: fid, Type: LinkDefault})
				}
			}
		}
	}
}
