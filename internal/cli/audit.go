package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/pkg/advisories"
	"github.com/cratelens/cratelens/pkg/depgraph"
	"github.com/cratelens/cratelens/pkg/registry"
)

// newAuditCmd creates the audit command. It matches every dependency
// against the security advisory feed.
func newAuditCmd() *cobra.Command {
	var (
		jsonOut bool
		feedURL string
	)

	cmd := &cobra.Command{
		Use:   "audit <Cargo.toml>",
		Short: "Scan dependencies for known vulnerabilities",
		Long: `Match every dependency against the security advisory feed.

The feed URL comes from --feed, the CRATELENS_ADVISORY_FEED environment
variable, or the built-in default, in that order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			logger := loggerFromContext(ctx)

			m, _, err := loadInputs(args[0], logger)
			if err != nil {
				return err
			}

			backend := newCacheBackend(ctx, logger)
			defer backend.Close()
			feed, err := registry.NewAdvisoryClient(backend, advisories.DefaultTTL, feedURL)
			if err != nil {
				return err
			}
			scanner := advisories.NewScanner(feed)

			g := depgraph.Build(m)
			var deps []advisories.Dependency
			for _, n := range g.Crates() {
				deps = append(deps, advisories.Dependency{Name: n.Name, Version: n.Version})
			}

			prog := newProgress(logger)
			vulns, err := scanner.Scan(ctx, deps)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Scanned %d dependencies", len(deps)))

			if jsonOut {
				if vulns == nil {
					vulns = []advisories.Vulnerability{}
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(vulns)
			}

			if len(vulns) == 0 {
				printSuccess("No known vulnerabilities")
				return nil
			}

			printWarning("%d finding(s)", len(vulns))
			for _, v := range vulns {
				style := severityStyle(v.Severity)
				fmt.Printf("%s %s@%s %s\n", style.Render(string(v.Severity)), v.Package, v.Version, StyleDim.Render(v.ID))
				printDetail("%s", v.Title)
				if v.URL != "" {
					printDetail("%s", v.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of a list")
	cmd.Flags().StringVar(&feedURL, "feed", "", "advisory feed URL (overrides CRATELENS_ADVISORY_FEED)")

	return cmd
}

func severityStyle(s advisories.Severity) lipgloss.Style {
	switch s {
	case advisories.SeverityCritical, advisories.SeverityHigh:
		return StyleDanger
	case advisories.SeverityMedium:
		return StyleWarning
	default:
		return StyleDim
	}
}
