package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cratelens/cratelens/pkg/conflicts"
	pkgerrors "github.com/cratelens/cratelens/pkg/errors"
)

// conflictOpts holds the command-line flags for the conflicts command.
type conflictOpts struct {
	order        string // highest or lowest
	preferStable bool
	jsonOut      bool
	interactive  bool
}

// newConflictsCmd creates the conflicts command. It detects packages
// requested under multiple version ranges and suggests one version per
// conflict from the lockfile.
func newConflictsCmd() *cobra.Command {
	opts := conflictOpts{order: "highest", preferStable: true}

	cmd := &cobra.Command{
		Use:   "conflicts <Cargo.toml>",
		Short: "Detect and resolve multi-version dependency conflicts",
		Long: `Detect packages requested under more than one version range and suggest
one lockfile version per conflict.

Resolution needs a Cargo.lock next to the manifest; without one, conflicts
are reported but no versions are suggested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runConflicts(c, &opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.order, "order", opts.order, "candidate ranking: highest or lowest")
	cmd.Flags().BoolVar(&opts.preferStable, "prefer-stable", opts.preferStable, "rank stable versions above prereleases")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit JSON instead of a table")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse conflicts interactively")

	return cmd
}

func (o *conflictOpts) strategy() (conflicts.Strategy, error) {
	s := conflicts.Strategy{PreferStable: o.preferStable}
	switch o.order {
	case "highest":
		s.Order = conflicts.OrderHighest
	case "lowest":
		s.Order = conflicts.OrderLowest
	default:
		return s, pkgerrors.New(pkgerrors.ErrCodeInvalidStrategy,
			"unknown order %q (available: highest, lowest)", o.order)
	}
	return s, nil
}

func runConflicts(cmd *cobra.Command, opts *conflictOpts, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	strategy, err := opts.strategy()
	if err != nil {
		return err
	}

	m, lf, err := loadInputs(path, logger)
	if err != nil {
		return err
	}
	if lf == nil {
		logger.Warnf("No Cargo.lock found; conflicts will be reported without suggested versions")
	}

	found := conflicts.Resolve(m, lf, strategy)

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		printSuccess("No version conflicts")
		return nil
	}

	if opts.interactive {
		model := newConflictListModel(found)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return err
		}
		return nil
	}

	printWarning("%d conflicted package(s)", len(found))
	for _, c := range found {
		fmt.Println()
		fmt.Println(StyleTitle.Render(c.Package))
		for _, req := range c.RequestedVersions {
			printDetail("%s requested by %s", req.Version, strings.Join(req.By, ", "))
		}
		if c.Resolution != nil {
			if c.Resolution.Reason == conflicts.ReasonUnsatisfiable {
				fmt.Println("  " + StyleDanger.Render(iconWarning+" "+c.Resolution.Version) + " " + StyleDim.Render(c.Resolution.Reason))
			} else {
				fmt.Println("  " + StyleSuccess.Render(iconSuccess+" "+c.Resolution.Version) + " " + StyleDim.Render(c.Resolution.Reason))
			}
		}
	}
	return nil
}
