package cli

import (
	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/internal/server"
	"github.com/cratelens/cratelens/pkg/advisories"
	"github.com/cratelens/cratelens/pkg/analysis"
	"github.com/cratelens/cratelens/pkg/licenses"
	"github.com/cratelens/cratelens/pkg/registry"
)

// newServeCmd creates the serve command. It exposes the analysis pipeline
// over HTTP so editors and CI can post manifests without shelling out.
func newServeCmd() *cobra.Command {
	var (
		addr    string
		feedURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis pipeline over HTTP",
		Long: `Start an HTTP server exposing the analysis pipeline.

Endpoints:
  POST /api/v1/analyze     full report (graph, conflicts, licenses, audit)
  POST /api/v1/graph       dependency graph only
  POST /api/v1/conflicts   conflict detection and resolution only
  POST /api/v1/licenses    license classification only
  POST /api/v1/audit       vulnerability scan only
  GET  /api/v1/reports/latest  most recent committed report
  GET  /healthz            liveness probe

Requests carry the manifest (and optionally the lockfile) inline as TOML
text in a JSON body.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			logger := loggerFromContext(ctx)

			backend := newCacheBackend(ctx, logger)
			defer backend.Close()

			crates := registry.NewCratesClient(backend, defaultCacheTTL)
			analyzer := licenses.NewAnalyzer(crates, licenses.WithLogger(func(format string, args ...any) {
				logger.Warnf(format, args...)
			}))

			feed, err := registry.NewAdvisoryClient(backend, advisories.DefaultTTL, feedURL)
			if err != nil {
				return err
			}
			scanner := advisories.NewScanner(feed)

			engine := analysis.NewEngine(analyzer, scanner)
			return server.New(addr, engine, logger).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8484", "listen address")
	cmd.Flags().StringVar(&feedURL, "feed", "", "advisory feed URL (overrides CRATELENS_ADVISORY_FEED)")

	return cmd
}
