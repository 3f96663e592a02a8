package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/pkg/depgraph"
	"github.com/cratelens/cratelens/pkg/licenses"
	"github.com/cratelens/cratelens/pkg/registry"
)

// newLicensesCmd creates the licenses command. It fetches the license of
// every dependency from crates.io and classifies it against the project
// license.
func newLicensesCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "licenses <Cargo.toml>",
		Short: "Classify dependency licenses against the project license",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			logger := loggerFromContext(ctx)

			m, _, err := loadInputs(args[0], logger)
			if err != nil {
				return err
			}

			backend := newCacheBackend(ctx, logger)
			defer backend.Close()
			crates := registry.NewCratesClient(backend, defaultCacheTTL)
			analyzer := licenses.NewAnalyzer(crates, licenses.WithLogger(func(format string, args ...any) {
				logger.Warnf(format, args...)
			}))

			g := depgraph.Build(m)

			spin := newSpinner(ctx, fmt.Sprintf("Checking %d dependency licenses", len(g.Crates())))
			spin.Start()
			infos, summary := analyzer.Analyze(ctx, m.Package.License, licenses.Targets(g))
			spin.Stop()

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Licenses []licenses.Info  `json:"licenses"`
					Summary  licenses.Summary `json:"summary"`
				}{infos, summary})
			}

			printLicenseReport(m.Package.License, infos, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of a table")

	return cmd
}

func printLicenseReport(projectLicense string, infos []licenses.Info, summary licenses.Summary) {
	if projectLicense == "" {
		printWarning("Manifest declares no license; compatibility cannot be checked")
	} else {
		printInfo("Project license: %s", projectLicense)
	}

	for _, info := range infos {
		style := StyleSuccess
		icon := iconSuccess
		switch info.Category {
		case licenses.CategoryBanned:
			style, icon = StyleDanger, iconError
		case licenses.CategoryCopyleft:
			style, icon = StyleWarning, iconWarning
		case licenses.CategoryUnknown:
			style, icon = StyleDim, iconInfo
		}
		line := fmt.Sprintf("%s %s@%s", style.Render(icon), info.Package, info.Version)
		line += " " + StyleDim.Render(fmt.Sprintf("%s (%s)", info.License, info.Category))
		if !info.Compatible && info.Category != licenses.CategoryUnknown {
			line += " " + StyleDanger.Render("incompatible")
		}
		fmt.Println(line)
	}

	fmt.Println()
	printDetail("%d total: %d approved, %d copyleft, %d banned, %d unknown, %d incompatible",
		summary.Total, summary.Approved, summary.Copyleft, summary.Banned, summary.Unknown, summary.Incompatible)
}
