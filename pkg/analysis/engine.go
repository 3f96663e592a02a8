// Package analysis orchestrates the full dependency analysis pipeline:
// graph construction, feature resolution, conflict resolution, license
// checking and vulnerability scanning.
//
// The engine is stateless between runs apart from a monotonic request
// sequence. Analyses may run concurrently (an editor fires one per keystroke
// burst); each report carries its sequence number and [Engine.Commit] only
// ever keeps the freshest one, so a slow stale run can never clobber a
// newer result.
package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cratelens/cratelens/pkg/advisories"
	"github.com/cratelens/cratelens/pkg/conflicts"
	"github.com/cratelens/cratelens/pkg/depgraph"
	"github.com/cratelens/cratelens/pkg/licenses"
	"github.com/cratelens/cratelens/pkg/manifest"
)

// Report is the result of one analysis run.
type Report struct {
	ID          string                     `json:"id"`
	Seq         uint64                     `json:"seq"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Package     string                     `json:"package"`
	Graph       depgraph.Snapshot          `json:"graph"`
	Conflicts   []conflicts.Conflict       `json:"conflicts"`
	Licenses    []licenses.Info            `json:"licenses,omitempty"`
	Summary     *licenses.Summary          `json:"licenseSummary,omitempty"`
	Vulns       []advisories.Vulnerability `json:"vulnerabilities,omitempty"`
	Diagnostics []depgraph.Diagnostic      `json:"diagnostics"`
}

// Options selects what one analysis run computes beyond the graph.
type Options struct {
	// Strategy configures conflict resolution.
	Strategy conflicts.Strategy
	// Tables supplies feature tables for dependencies, keyed by crate name.
	// The root crate's table is derived from the manifest automatically.
	Tables depgraph.FeatureTables
	// Licenses enables the license pass (requires a registry on the engine).
	Licenses bool
	// Vulnerabilities enables the advisory pass (requires a feed on the
	// engine).
	Vulnerabilities bool
}

// Engine runs analyses. The license analyzer and vulnerability scanner are
// optional; a nil collaborator disables its pass regardless of Options.
type Engine struct {
	licenses *licenses.Analyzer
	scanner  *advisories.Scanner

	seq atomic.Uint64

	mu     sync.Mutex
	latest *Report
}

// NewEngine creates an Engine. Either collaborator may be nil.
func NewEngine(lic *licenses.Analyzer, scan *advisories.Scanner) *Engine {
	return &Engine{licenses: lic, scanner: scan}
}

// Analyze runs the full pipeline for one manifest snapshot.
//
// The graph passes are synchronous; the license and advisory passes run
// concurrently once the graph exists. A failed advisory fetch degrades to an
// empty findings list rather than failing the run, matching the license
// pass's per-dependency degradation.
func (e *Engine) Analyze(ctx context.Context, m *manifest.Manifest, lf *manifest.Lockfile, opts Options) (*Report, error) {
	seq := e.seq.Add(1)

	g := depgraph.Build(m)

	tables := depgraph.FeatureTables{}
	for name, table := range opts.Tables {
		tables[name] = table
	}
	if root := depgraph.RootFeatureTable(m); root != nil {
		tables[m.Package.Name] = root
	}
	depgraph.ResolveFeatures(g, tables)

	report := &Report{
		ID:          uuid.NewString(),
		Seq:         seq,
		GeneratedAt: time.Now().UTC(),
		Package:     m.Package.Name,
		Graph:       g.Snapshot(),
		Conflicts:   conflicts.Resolve(m, lf, opts.Strategy),
		Diagnostics: g.Diagnostics(),
	}
	if report.Conflicts == nil {
		report.Conflicts = []conflicts.Conflict{}
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []depgraph.Diagnostic{}
	}

	deps := dependencyList(g)

	var wg sync.WaitGroup
	if opts.Licenses && e.licenses != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			licDeps := make([]licenses.Dependency, len(deps))
			for i, d := range deps {
				licDeps[i] = licenses.Dependency(d)
			}
			infos, summary := e.licenses.Analyze(ctx, m.Package.License, licDeps)
			report.Licenses = infos
			report.Summary = &summary
		}()
	}
	if opts.Vulnerabilities && e.scanner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanDeps := make([]advisories.Dependency, len(deps))
			for i, d := range deps {
				scanDeps[i] = advisories.Dependency(d)
			}
			vulns, err := e.scanner.Scan(ctx, scanDeps)
			if err != nil {
				vulns = []advisories.Vulnerability{}
			}
			report.Vulns = vulns
		}()
	}
	wg.Wait()

	return report, nil
}

// Commit records a finished report as the latest unless a fresher one was
// committed already. Returns the report now considered latest.
func (e *Engine) Commit(r *Report) *Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil || r.Seq >= e.latest.Seq {
		e.latest = r
	}
	return e.latest
}

// Latest returns the most recently committed report, or nil before the first
// commit.
func (e *Engine) Latest() *Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

type dependency struct {
	Name    string
	Version string
}

// dependencyList lists the crate nodes of a graph, skipping the root and
// feature nodes.
func dependencyList(g *depgraph.Graph) []dependency {
	var out []dependency
	for _, n := range g.Crates() {
		out = append(out, dependency{Name: n.Name, Version: n.Version})
	}
	return out
}
