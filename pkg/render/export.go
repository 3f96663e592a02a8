package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cratelens/cratelens/pkg/depgraph"
)

// WriteJSON encodes a graph snapshot as indented JSON and writes it to w.
func WriteJSON(g *depgraph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Snapshot()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph snapshot to a JSON file at path.
func ExportJSON(g *depgraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// ExportDOT writes the DOT form of a graph to path.
func ExportDOT(g *depgraph.Graph, path string, opts Options) error {
	return os.WriteFile(path, []byte(ToDOT(g, opts)), 0o644)
}

// ExportSVG renders and writes the SVG form of a graph to path.
func ExportSVG(g *depgraph.Graph, path string, opts Options) error {
	svg, err := RenderSVG(ToDOT(g, opts))
	if err != nil {
		return err
	}
	return os.WriteFile(path, svg, 0o644)
}
