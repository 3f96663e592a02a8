package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cratelens/cratelens/pkg/cache"
	"github.com/cratelens/cratelens/pkg/depgraph"
	pkgerrors "github.com/cratelens/cratelens/pkg/errors"
)

// CrateVersion holds per-version metadata for a crate from crates.io.
type CrateVersion struct {
	Name     string              // crate name
	Version  string              // exact published version
	License  string              // license expression, may be empty
	Yanked   bool                // version was withdrawn
	Features map[string][]string // feature table as published
}

// CratesClient provides access to the crates.io registry API.
//
// All methods are safe for concurrent use. crates.io requires a User-Agent
// header; this client sets one automatically.
type CratesClient struct {
	*Client
	baseURL string
}

// NewCratesClient creates a crates.io client with the given cache backend.
func NewCratesClient(backend cache.Cache, cacheTTL time.Duration) *CratesClient {
	headers := map[string]string{
		"User-Agent": "cratelens/1.0 (https://github.com/cratelens/cratelens)",
	}
	return &CratesClient{
		Client:  NewClient(backend, "crates:", cacheTTL, headers),
		baseURL: "https://crates.io/api/v1",
	}
}

// FetchVersion retrieves metadata for one exact published version.
//
// Returns [cache.ErrNotFound] if the crate or version does not exist and
// [cache.ErrNetwork] for HTTP failures.
func (c *CratesClient) FetchVersion(ctx context.Context, crate, version string, refresh bool) (*CrateVersion, error) {
	if err := pkgerrors.ValidateCrateName(crate); err != nil {
		return nil, err
	}
	key := crate + "@" + version

	var info CrateVersion
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetchVersion(ctx, crate, version, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *CratesClient) fetchVersion(ctx context.Context, crate, version string, info *CrateVersion) error {
	var data versionResponse
	url := fmt.Sprintf("%s/crates/%s/%s", c.baseURL, crate, version)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("%w: crate %s@%s", err, crate, version)
		}
		return err
	}

	*info = CrateVersion{
		Name:     crate,
		Version:  data.Version.Num,
		License:  data.Version.License,
		Yanked:   data.Version.Yanked,
		Features: data.Version.Features,
	}
	return nil
}

// License implements the license-registry collaborator: it returns the
// license expression of an exact published version. Wildcard or range
// versions fall back to the crate's current max version.
func (c *CratesClient) License(ctx context.Context, name, version string) (string, error) {
	version, err := c.resolvedVersion(ctx, name, version)
	if err != nil {
		return "", err
	}
	info, err := c.FetchVersion(ctx, name, version, false)
	if err != nil {
		return "", err
	}
	return info.License, nil
}

// resolvedVersion maps a declared version to an exact published one.
// Wildcards and ranges fall back to the crate's current max version.
func (c *CratesClient) resolvedVersion(ctx context.Context, name, version string) (string, error) {
	if version != "" && version != "*" && exactVersion(version) {
		return version, nil
	}
	top, err := c.fetchCrate(ctx, name)
	if err != nil {
		return "", err
	}
	return top.Crate.MaxVersion, nil
}

// FeatureTable fetches the published feature table for an exact version,
// shaped for the feature-resolution pass. Members of the "default" list are
// marked default.
func (c *CratesClient) FeatureTable(ctx context.Context, name, version string) (depgraph.FeatureTable, error) {
	info, err := c.FetchVersion(ctx, name, version, false)
	if err != nil {
		return nil, err
	}
	if len(info.Features) == 0 {
		return nil, nil
	}
	defaults := make(map[string]bool)
	for _, f := range info.Features["default"] {
		defaults[f] = true
	}
	table := make(depgraph.FeatureTable, len(info.Features))
	for feat, requires := range info.Features {
		table[feat] = depgraph.FeatureDef{
			Requires: requires,
			Default:  feat == "default" || defaults[feat],
		}
	}
	return table, nil
}

// FeatureTables fetches the published feature table of every crate node in
// the graph, keyed by crate name, ready for the feature-resolution pass.
// Range versions resolve like [CratesClient.License]. A failed lookup is
// reported through onErr (when non-nil) and the crate is skipped; feature
// resolution simply has less to work with then.
func (c *CratesClient) FeatureTables(ctx context.Context, g *depgraph.Graph, onErr func(name string, err error)) depgraph.FeatureTables {
	tables := depgraph.FeatureTables{}
	for _, n := range g.Crates() {
		version, err := c.resolvedVersion(ctx, n.Name, n.Version)
		if err == nil {
			var table depgraph.FeatureTable
			if table, err = c.FeatureTable(ctx, n.Name, version); err == nil {
				if table != nil {
					tables[n.Name] = table
				}
				continue
			}
		}
		if onErr != nil {
			onErr(n.Name, err)
		}
	}
	return tables
}

func (c *CratesClient) fetchCrate(ctx context.Context, crate string) (*crateResponse, error) {
	if err := pkgerrors.ValidateCrateName(crate); err != nil {
		return nil, err
	}
	var data crateResponse
	err := c.Cached(ctx, crate, false, &data, func() error {
		return c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, crate), &data)
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// exactVersion reports whether the string names one concrete version rather
// than a range.
func exactVersion(v string) bool {
	for _, r := range v {
		switch r {
		case '^', '~', '>', '<', '=', '*', ' ', ',':
			return false
		}
	}
	return true
}

type versionResponse struct {
	Version struct {
		Num      string              `json:"num"`
		License  string              `json:"license"`
		Yanked   bool                `json:"yanked"`
		Features map[string][]string `json:"features"`
	} `json:"version"`
}

type crateResponse struct {
	Crate struct {
		Name       string `json:"name"`
		MaxVersion string `json:"max_version"`
	} `json:"crate"`
}
