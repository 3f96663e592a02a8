// Package render turns a dependency graph into DOT and SVG output.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/cratelens/cratelens/pkg/depgraph"
)

// Options configures graph rendering.
type Options struct {
	// Features includes feature nodes and their edges. When false, only
	// crate nodes and depends/optional links are drawn.
	Features bool
}

// ToDOT converts a dependency graph to Graphviz DOT format. The resulting
// DOT string can be rendered with [RenderSVG].
//
// Feature nodes are drawn with dashed outlines and grey fill to distinguish
// them from crates; optional dependency edges are dashed.
func ToDOT(g *depgraph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		if n.Kind == depgraph.KindFeature && !opts.Features {
			continue
		}
		attrs := nodeAttrs(n)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range g.Links() {
		if !opts.Features && featureEdge(g, l) {
			continue
		}
		if attrs := edgeAttrs(l); len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.Source, l.Target, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", l.Source, l.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *depgraph.Node) []string {
	label := n.Name
	if n.Kind != depgraph.KindFeature && n.Version != "" {
		label = n.Name + "\n" + n.Version
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Root:
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	case n.Kind == depgraph.KindFeature:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontsize=11")
	case n.Dev || n.Build:
		attrs = append(attrs, "fillcolor=cornsilk")
	}
	return attrs
}

func edgeAttrs(l depgraph.Link) []string {
	var attrs []string
	switch l.Type {
	case depgraph.LinkOptional:
		attrs = append(attrs, "style=dashed")
	case depgraph.LinkFeature, depgraph.LinkDefault:
		attrs = append(attrs, "style=dotted", "color=grey50")
	}
	return attrs
}

// featureEdge reports whether either endpoint of a link is a feature node.
func featureEdge(g *depgraph.Graph, l depgraph.Link) bool {
	if n, ok := g.Node(l.Source); ok && n.Kind == depgraph.KindFeature {
		return true
	}
	if n, ok := g.Node(l.Target); ok && n.Kind == depgraph.KindFeature {
		return true
	}
	return false
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg tag so the viewBox starts at the origin
// and width/height match it. Graphviz emits point-based offsets that confuse
// some embedders.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
