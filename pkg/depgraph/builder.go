// Package depgraph builds a typed dependency graph from a structured
// manifest.
//
// Construction is a strict two-pass pipeline. [Build] turns the manifest's
// dependency sections into nodes and links; [ResolveFeatures] then adds
// cross-feature requirement and default-feature edges on top, using the
// depends links the first pass produced for cross-crate lookups. Both passes
// are synchronous, pure and deterministic for a fixed input: callers re-run
// them wholesale on every edit instead of patching a persisted graph.
package depgraph

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/cratelens/cratelens/pkg/manifest"
)

// Build constructs the dependency graph for a manifest.
//
// A root workspace node is seeded from the package table, then each section
// (dependencies, dev-dependencies, build-dependencies, workspace
// dependencies) contributes crate and feature nodes. A crate reached from
// several sections keeps one node with its flags OR'd together; distinct
// declared versions of the same package stay distinct nodes, because the
// graph mirrors declarations rather than one resolved reality (picking that
// reality is the conflict resolver's job).
//
// Malformed dependency entries are skipped with a diagnostic, never fatal.
func Build(m *manifest.Manifest) *Graph {
	g := NewGraph()

	rootVersion := m.Package.Version
	if rootVersion == "" {
		rootVersion = "*"
	}
	root, _ := g.AddNode(Node{
		ID:      CrateID(m.Package.Name, rootVersion),
		Kind:    KindWorkspace,
		Name:    m.Package.Name,
		Version: rootVersion,
		Root:    true,
	})

	addRootFeatures(g, root, m.Features)

	sections := []struct {
		deps       map[string]manifest.Dependency
		dev, build bool
	}{
		{deps: m.Dependencies},
		{deps: m.DevDependencies, dev: true},
		{deps: m.BuildDependencies, build: true},
	}
	if m.Workspace != nil {
		sections = append(sections, struct {
			deps       map[string]manifest.Dependency
			dev, build bool
		}{deps: m.Workspace.Dependencies})
	}

	for _, sec := range sections {
		names := maps.Keys(sec.deps)
		slices.Sort(names)
		for _, name := range names {
			addDependency(g, root, name, sec.deps[name], sec.dev, sec.build)
		}
	}

	return g
}

// addRootFeatures creates feature nodes for the manifest's own feature table
// so the feature pass can attach requirement edges to them.
func addRootFeatures(g *Graph, root *Node, features map[string][]string) {
	defaults := make(map[string]bool)
	for _, f := range features["default"] {
		defaults[f] = true
	}

	featNames := maps.Keys(features)
	slices.Sort(featNames)
	for _, name := range featNames {
		id := FeatureID(root.ID, name)
		if _, ok := g.Node(id); ok {
			continue
		}
		_, _ = g.AddNode(Node{
			ID:      id,
			Kind:    KindFeature,
			Name:    name,
			Default: name == "default" || defaults[name],
		})
		_ = g.AddLink(Link{Source: root.ID, Target: id, Type: LinkFeature})
	}
}

// addDependency processes one (name, spec) entry of a dependency section.
// The parent is the root for manifest sections; feature nodes become parents
// when the entry was requested by a feature.
func addDependency(g *Graph, parent *Node, name string, dep manifest.Dependency, dev, build bool) {
	if !dep.Valid() {
		g.addDiagnostic(Diagnostic{
			Kind:    DiagMalformedDependency,
			Subject: name,
			Detail:  "dependency entry has neither string nor table shape",
		})
		return
	}

	id := CrateID(name, dep.VersionOrWildcard())
	node, ok := g.Node(id)
	if !ok {
		node, _ = g.AddNode(Node{
			ID:       id,
			Kind:     KindCrate,
			Name:     name,
			Version:  dep.VersionOrWildcard(),
			Direct:   parent.Root,
			Dev:      dev,
			Build:    build,
			Optional: dep.Optional,
		})
	} else {
		// Union flags: reached from another section, never downgrade.
		node.Direct = node.Direct || parent.Root
		node.Dev = node.Dev || dev
		node.Build = node.Build || build
		node.Optional = node.Optional || dep.Optional
	}

	for _, feat := range dep.Features {
		fid := FeatureID(id, feat)
		if _, ok := g.Node(fid); !ok {
			_, _ = g.AddNode(Node{ID: fid, Kind: KindFeature, Name: feat})
		}
		addLinkOnce(g, Link{Source: id, Target: fid, Type: LinkFeature})
		if parent.Kind == KindFeature {
			addLinkOnce(g, Link{
				Source:   parent.ID,
				Target:   fid,
				Type:     LinkDepends,
				Required: !dep.Optional,
				Feature:  feat,
			})
		}
	}

	if dep.DefaultFeatures {
		did := FeatureID(id, "default")
		if _, ok := g.Node(did); !ok {
			_, _ = g.AddNode(Node{ID: did, Kind: KindFeature, Name: "default", Default: true})
		}
		addLinkOnce(g, Link{Source: id, Target: did, Type: LinkDefault})
	}

	typ := LinkDepends
	if dep.Optional {
		typ = LinkOptional
	}
	addLinkOnce(g, Link{
		Source:   parent.ID,
		Target:   id,
		Type:     typ,
		Required: !dep.Optional,
		Optional: dep.Optional,
	})
}

// addLinkOnce adds the link unless an identical (source, target, type) link
// already exists, keeping re-declarations across sections from doubling
// edges.
func addLinkOnce(g *Graph, l Link) {
	if g.HasLink(l.Source, l.Target, l.Type) {
		return
	}
	if err := g.AddLink(l); err != nil {
		// Both endpoints were just created or looked up; this is unreachable
		// unless the arena is corrupted.
		panic(fmt.Sprintf("depgraph: add link %s -> %s: %v", l.Source, l.Target, err))
	}
}
