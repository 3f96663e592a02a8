// Package licenses classifies dependency licenses and checks them against
// the project license.
//
// License strings are fetched through a registry collaborator and memoized
// per (package, version) — a published version's license is immutable, so
// the memo is never invalidated. Lookups for a batch run concurrently with a
// bounded worker pool; a failed lookup degrades that dependency to an
// "unknown" placeholder entry instead of failing the batch.
package licenses

import (
	"context"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cratelens/cratelens/pkg/depgraph"
)

const (
	// workers bounds concurrent registry lookups for one batch.
	workers = 8

	// memoSize bounds the license memo. Entries are only ever evicted for
	// capacity, never for staleness.
	memoSize = 4096
)

// Registry fetches the license string for a published package version.
// Implementations are expected to be safe for concurrent use.
type Registry interface {
	License(ctx context.Context, name, version string) (string, error)
}

// Info is the license verdict for one dependency.
type Info struct {
	Package    string   `json:"package"`
	Version    string   `json:"version"`
	License    string   `json:"license"`
	Category   Category `json:"category"`
	Compatible bool     `json:"compatible"`
}

// Summary counts verdicts per bucket.
type Summary struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	Copyleft     int `json:"copyleft"`
	Banned       int `json:"banned"`
	Unknown      int `json:"unknown"`
	Incompatible int `json:"incompatible"`
}

// Dependency identifies one (package, version) to analyze.
type Dependency struct {
	Name    string
	Version string
}

// Targets lists the crate nodes of a graph as analyzer inputs, skipping the
// root and feature nodes.
func Targets(g *depgraph.Graph) []Dependency {
	var out []Dependency
	for _, n := range g.Crates() {
		out = append(out, Dependency{Name: n.Name, Version: n.Version})
	}
	return out
}

// Analyzer fetches, classifies and checks dependency licenses.
type Analyzer struct {
	registry Registry
	memo     *lru.Cache[string, string]
	logf     func(string, ...any)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the callback used to report degraded lookups.
func WithLogger(logf func(string, ...any)) Option {
	return func(a *Analyzer) { a.logf = logf }
}

// NewAnalyzer creates an Analyzer backed by the given registry collaborator.
func NewAnalyzer(registry Registry, opts ...Option) *Analyzer {
	memo, _ := lru.New[string, string](memoSize)
	a := &Analyzer{
		registry: registry,
		memo:     memo,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze fetches and classifies the license of every dependency and checks
// compatibility against the project license expression (possibly
// multi-license, '/'-separated).
//
// The result is sorted for display: banned, then copyleft, then unknown,
// then approved, alphabetical by package within each bucket.
func (a *Analyzer) Analyze(ctx context.Context, projectLicense string, deps []Dependency) ([]Info, Summary) {
	infos := make([]Info, len(deps))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, dep := range deps {
		i, dep := i, dep
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			infos[i] = a.analyzeOne(ctx, projectLicense, dep)
		}()
	}
	wg.Wait()

	sortForDisplay(infos)
	return infos, summarize(infos)
}

func (a *Analyzer) analyzeOne(ctx context.Context, projectLicense string, dep Dependency) Info {
	expr, err := a.license(ctx, dep)
	if err != nil || expr == "" {
		if err != nil {
			a.logf("license lookup failed: %s@%s: %v", dep.Name, dep.Version, err)
		}
		return Info{
			Package:  dep.Name,
			Version:  dep.Version,
			License:  "unknown",
			Category: CategoryUnknown,
		}
	}
	return Info{
		Package:    dep.Name,
		Version:    dep.Version,
		License:    expr,
		Category:   Classify(expr),
		Compatible: Compatible(projectLicense, expr),
	}
}

// license returns the memoized license string for a (package, version).
func (a *Analyzer) license(ctx context.Context, dep Dependency) (string, error) {
	key := dep.Name + "@" + dep.Version
	if expr, ok := a.memo.Get(key); ok {
		return expr, nil
	}
	expr, err := a.registry.License(ctx, dep.Name, dep.Version)
	if err != nil {
		return "", err
	}
	a.memo.Add(key, expr)
	return expr, nil
}

// displayRank orders buckets for presentation: problems first.
var displayRank = map[Category]int{
	CategoryBanned:     0,
	CategoryCopyleft:   1,
	CategoryUnknown:    2,
	CategoryPermissive: 3,
}

func sortForDisplay(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		ri, rj := displayRank[infos[i].Category], displayRank[infos[j].Category]
		if ri != rj {
			return ri < rj
		}
		if infos[i].Package != infos[j].Package {
			return infos[i].Package < infos[j].Package
		}
		return infos[i].Version < infos[j].Version
	})
}

func summarize(infos []Info) Summary {
	s := Summary{Total: len(infos)}
	for _, info := range infos {
		switch info.Category {
		case CategoryPermissive:
			s.Approved++
		case CategoryCopyleft:
			s.Copyleft++
		case CategoryBanned:
			s.Banned++
		default:
			s.Unknown++
		}
		if !info.Compatible {
			s.Incompatible++
		}
	}
	return s
}
