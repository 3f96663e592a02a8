package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/pkg/advisories"
	"github.com/cratelens/cratelens/pkg/analysis"
	"github.com/cratelens/cratelens/pkg/conflicts"
	"github.com/cratelens/cratelens/pkg/depgraph"
	"github.com/cratelens/cratelens/pkg/licenses"
	"github.com/cratelens/cratelens/pkg/registry"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	output         string
	noLicense      bool
	noAudit        bool
	remoteFeatures bool
	feedURL        string
}

// newAnalyzeCmd creates the analyze command: the full pipeline in one shot,
// emitting a single JSON report.
func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze <Cargo.toml>",
		Short: "Run the full analysis pipeline and emit one JSON report",
		Long: `Run graph construction, feature resolution, conflict resolution, license
classification, and the vulnerability scan, and emit one JSON report.

Example:
  cratelens analyze Cargo.toml -o report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runAnalyze(c, &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.noLicense, "no-licenses", false, "skip the license pass")
	cmd.Flags().BoolVar(&opts.noAudit, "no-audit", false, "skip the vulnerability scan")
	cmd.Flags().BoolVar(&opts.remoteFeatures, "remote-features", false, "fetch dependency feature tables from crates.io")
	cmd.Flags().StringVar(&opts.feedURL, "feed", "", "advisory feed URL (overrides CRATELENS_ADVISORY_FEED)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOpts, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	m, lf, err := loadInputs(path, logger)
	if err != nil {
		return err
	}

	backend := newCacheBackend(ctx, logger)
	defer backend.Close()

	var crates *registry.CratesClient
	if !opts.noLicense || opts.remoteFeatures {
		crates = registry.NewCratesClient(backend, defaultCacheTTL)
	}

	var analyzer *licenses.Analyzer
	if !opts.noLicense {
		analyzer = licenses.NewAnalyzer(crates, licenses.WithLogger(func(format string, args ...any) {
			logger.Warnf(format, args...)
		}))
	}
	var scanner *advisories.Scanner
	if !opts.noAudit {
		feed, err := registry.NewAdvisoryClient(backend, advisories.DefaultTTL, opts.feedURL)
		if err != nil {
			return err
		}
		scanner = advisories.NewScanner(feed)
	}

	engine := analysis.NewEngine(analyzer, scanner)

	var tables depgraph.FeatureTables
	if opts.remoteFeatures {
		tables = crates.FeatureTables(ctx, depgraph.Build(m), func(name string, err error) {
			logger.Warnf("No feature table for %s: %v", name, err)
		})
	}

	prog := newProgress(logger)
	report, err := engine.Analyze(ctx, m, lf, analysis.Options{
		Strategy:        conflicts.DefaultStrategy,
		Tables:          tables,
		Licenses:        !opts.noLicense,
		Vulnerabilities: !opts.noAudit,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Analyzed %s: %d nodes, %d conflicts", report.Package, len(report.Graph.Nodes), len(report.Conflicts)))

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Wrote report")
		printFile(opts.output)
	}
	return nil
}
