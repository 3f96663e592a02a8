package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/pkg/depgraph"
	"github.com/cratelens/cratelens/pkg/registry"
	"github.com/cratelens/cratelens/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	format         string // output format: json, dot, or svg
	output         string // output file path (stdout if empty)
	features       bool   // include feature nodes in dot/svg output
	remoteFeatures bool   // fetch dependency feature tables from crates.io
}

// newGraphCmd creates the graph command. It builds the dependency graph
// from a Cargo.toml and exports it in the requested format.
func newGraphCmd() *cobra.Command {
	opts := graphOpts{format: "json", features: true}

	cmd := &cobra.Command{
		Use:   "graph <Cargo.toml>",
		Short: "Build and export the dependency graph",
		Long: `Build the typed dependency graph for a Cargo.toml and export it.

Examples:
  cratelens graph Cargo.toml                      # JSON to stdout
  cratelens graph Cargo.toml -f dot -o graph.dot  # Graphviz DOT
  cratelens graph Cargo.toml -f svg -o graph.svg  # rendered SVG`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runGraph(c, &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.features, "features", opts.features, "include feature nodes in dot/svg output")
	cmd.Flags().BoolVar(&opts.remoteFeatures, "remote-features", false, "fetch dependency feature tables from crates.io")

	return cmd
}

func runGraph(cmd *cobra.Command, opts *graphOpts, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	m, _, err := loadInputs(path, logger)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	g := depgraph.Build(m)

	tables := depgraph.FeatureTables{
		m.Package.Name: depgraph.RootFeatureTable(m),
	}
	if opts.remoteFeatures {
		backend := newCacheBackend(ctx, logger)
		defer backend.Close()
		crates := registry.NewCratesClient(backend, defaultCacheTTL)
		for name, table := range crates.FeatureTables(ctx, g, func(name string, err error) {
			logger.Warnf("No feature table for %s: %v", name, err)
		}) {
			tables[name] = table
		}
	}
	depgraph.ResolveFeatures(g, tables)
	prog.done(fmt.Sprintf("Built graph with %d nodes and %d links", g.NodeCount(), g.LinkCount()))

	for _, d := range g.Diagnostics() {
		logger.Warnf("%s: %s", d.Subject, d.Detail)
	}

	switch opts.format {
	case "json":
		out, err := openOutput(opts.output)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := render.WriteJSON(g, out); err != nil {
			return err
		}
	case "dot":
		if opts.output == "" {
			fmt.Print(render.ToDOT(g, render.Options{Features: opts.features}))
			return nil
		}
		if err := render.ExportDOT(g, opts.output, render.Options{Features: opts.features}); err != nil {
			return err
		}
	case "svg":
		if opts.output == "" {
			return fmt.Errorf("svg output requires --output")
		}
		if err := render.ExportSVG(g, opts.output, render.Options{Features: opts.features}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format: %s (available: json, dot, svg)", opts.format)
	}

	if opts.output != "" {
		printSuccess("Wrote %s graph", opts.format)
		printFile(opts.output)
		printStats(g.NodeCount(), g.LinkCount())
	}
	return nil
}
