// Package conflicts detects and resolves multi-version dependency conflicts.
//
// A conflict exists when one package name is requested under more than one
// distinct version range, either by the manifest's sections or by other
// packages inside the lockfile. Resolution picks one concrete lockfile
// version per offending name according to a configurable strategy; it never
// rewrites the manifest or lockfile — the output is advisory for an external
// updater or UI.
//
// Resolution is deterministic for a fixed (manifest, lockfile, strategy)
// triple: candidate sorting is stable with lockfile order as the tie-break,
// and no randomness is involved.
package conflicts

import (
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/exp/maps"

	"github.com/cratelens/cratelens/pkg/manifest"
)

// Order selects the direction candidates are ranked in.
type Order int

const (
	// OrderHighest ranks higher versions first (the default).
	OrderHighest Order = iota
	// OrderLowest ranks lower versions first.
	OrderLowest
)

// Strategy configures conflict resolution.
type Strategy struct {
	// PreferStable ranks non-prerelease versions above prereleases
	// regardless of numeric order.
	PreferStable bool
	// Order ranks candidates highest-first or lowest-first.
	Order Order
}

// DefaultStrategy is descending with stability preferred.
var DefaultStrategy = Strategy{PreferStable: true, Order: OrderHighest}

// ReasonUnsatisfiable is recorded when no candidate satisfies every
// requested range and resolution falls back to the top candidate by the
// active sort order. The fallback deliberately picks no "closest fit": it is
// the top of the ranking, nothing smarter.
const ReasonUnsatisfiable = "no version satisfies all constraints"

// ReasonSatisfiesAll is recorded when the picked version satisfies every
// requested range.
const ReasonSatisfiesAll = "satisfies all requested ranges"

// Requested is one distinct version range and the requesters that declared it.
type Requested struct {
	Version string   `json:"version"`
	By      []string `json:"by"`
}

// Resolution is the version picked for a conflict and why.
type Resolution struct {
	Version string `json:"version"`
	Reason  string `json:"reason"`
}

// Conflict is one package requested under multiple distinct ranges.
// Conflicts are produced fresh per (manifest, lockfile) pair, never mutated
// in place.
type Conflict struct {
	Package           string      `json:"package"`
	RequestedVersions []Requested `json:"requestedVersions"`
	Resolution        *Resolution `json:"resolution,omitempty"`
}

// Manifest section requesters. Lockfile requesters are the owning package
// names.
const (
	requesterRoot      = "root"
	requesterDev       = "dev"
	requesterBuild     = "build"
	requesterWorkspace = "workspace"
)

// Detect finds every package requested under more than one distinct range.
// Ranges come from the manifest's sections and from inter-package edges in
// the lockfile. The result is sorted by package name; requesters are sorted
// within each range.
func Detect(m *manifest.Manifest, lf *manifest.Lockfile) []Conflict {
	requested := collect(m, lf)

	var out []Conflict
	names := maps.Keys(requested)
	slices.Sort(names)
	for _, name := range names {
		ranges := requested[name]
		if len(ranges) < 2 {
			continue
		}
		c := Conflict{Package: name}
		rngs := maps.Keys(ranges)
		slices.Sort(rngs)
		for _, rng := range rngs {
			by := maps.Keys(ranges[rng])
			slices.Sort(by)
			c.RequestedVersions = append(c.RequestedVersions, Requested{
				Version: rng,
				By:      by,
			})
		}
		out = append(out, c)
	}
	return out
}

// Resolve detects conflicts and picks one version per conflicted package
// according to the strategy.
func Resolve(m *manifest.Manifest, lf *manifest.Lockfile, strategy Strategy) []Conflict {
	out := Detect(m, lf)
	for i := range out {
		out[i].Resolution = resolve(&out[i], lf, strategy)
	}
	return out
}

// collect builds name -> range -> set(requester) from the manifest sections
// and the lockfile's inter-package edges.
func collect(m *manifest.Manifest, lf *manifest.Lockfile) map[string]map[string]map[string]bool {
	requested := make(map[string]map[string]map[string]bool)

	add := func(name, rng, by string) {
		if requested[name] == nil {
			requested[name] = make(map[string]map[string]bool)
		}
		if requested[name][rng] == nil {
			requested[name][rng] = make(map[string]bool)
		}
		requested[name][rng][by] = true
	}

	addSection := func(deps map[string]manifest.Dependency, by string) {
		for name, dep := range deps {
			if !dep.Valid() {
				continue
			}
			add(name, dep.VersionOrWildcard(), by)
		}
	}

	if m != nil {
		addSection(m.Dependencies, requesterRoot)
		addSection(m.DevDependencies, requesterDev)
		addSection(m.BuildDependencies, requesterBuild)
		if m.Workspace != nil {
			addSection(m.Workspace.Dependencies, requesterWorkspace)
		}
	}

	if lf != nil {
		for _, pkg := range lf.Packages {
			for _, dep := range pkg.Dependencies {
				if dep.Name == "" || dep.Version == "" {
					continue
				}
				add(dep.Name, dep.Version, pkg.Name)
			}
		}
	}

	return requested
}

// candidate is one semver-valid lockfile version of the conflicted package.
type candidate struct {
	raw     string
	version *semver.Version
}

// resolve picks one version for a conflict. The candidate pool is the
// distinct semver-valid versions of the package present in the lockfile,
// ranked by the strategy; the first candidate satisfying every requested
// range wins. When none does, the top candidate by the active sort order is
// picked with ReasonUnsatisfiable — deliberately no closest-fit heuristic.
func resolve(c *Conflict, lf *manifest.Lockfile, strategy Strategy) *Resolution {
	if lf == nil {
		return nil
	}

	var pool []candidate
	for _, raw := range lf.Versions(c.Package) {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		pool = append(pool, candidate{raw: raw, version: v})
	}
	if len(pool) == 0 {
		return nil
	}

	// Stable sort keeps lockfile order as the tie-break.
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i].version, pool[j].version
		if strategy.PreferStable {
			aPre, bPre := a.Prerelease() != "", b.Prerelease() != ""
			if aPre != bPre {
				return !aPre
			}
		}
		if strategy.Order == OrderLowest {
			return a.LessThan(b)
		}
		return a.GreaterThan(b)
	})

	var constraints []*semver.Constraints
	for _, req := range c.RequestedVersions {
		cons, err := semver.NewConstraint(req.Version)
		if err != nil {
			// An unparseable range cannot be checked; it does not veto.
			continue
		}
		constraints = append(constraints, cons)
	}

	for _, cand := range pool {
		if satisfiesAll(cand.version, constraints) {
			return &Resolution{Version: cand.raw, Reason: ReasonSatisfiesAll}
		}
	}

	return &Resolution{Version: pool[0].raw, Reason: ReasonUnsatisfiable}
}

func satisfiesAll(v *semver.Version, constraints []*semver.Constraints) bool {
	for _, c := range constraints {
		if !c.Check(v) {
			return false
		}
	}
	return true
}
