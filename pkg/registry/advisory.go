package registry

import (
	"context"
	"os"
	"time"

	"github.com/cratelens/cratelens/pkg/advisories"
	"github.com/cratelens/cratelens/pkg/cache"
	pkgerrors "github.com/cratelens/cratelens/pkg/errors"
)

// DefaultFeedURL is the advisory feed fetched when CRATELENS_ADVISORY_FEED
// is unset.
const DefaultFeedURL = "https://advisories.cratelens.dev/v1/feed.json"

// FeedURL returns the configured advisory feed URL.
func FeedURL() string {
	if url := os.Getenv("CRATELENS_ADVISORY_FEED"); url != "" {
		return url
	}
	return DefaultFeedURL
}

// AdvisoryClient fetches the security advisory feed. It implements the
// scanner's feed collaborator.
type AdvisoryClient struct {
	*Client
	url string
}

// NewAdvisoryClient creates an advisory feed client for the given URL with
// the given cache backend. An empty url selects [FeedURL].
func NewAdvisoryClient(backend cache.Cache, cacheTTL time.Duration, url string) (*AdvisoryClient, error) {
	if url == "" {
		url = FeedURL()
	}
	if err := pkgerrors.ValidateURL(url); err != nil {
		return nil, err
	}
	return &AdvisoryClient{
		Client: NewClient(backend, "advisories:", cacheTTL, nil),
		url:    url,
	}, nil
}

// Advisories fetches the feed and indexes it by package name.
func (c *AdvisoryClient) Advisories(ctx context.Context) (map[string][]advisories.Advisory, error) {
	var feed feedResponse
	err := c.Cached(ctx, "feed", false, &feed, func() error {
		return c.Get(ctx, c.url, &feed)
	})
	if err != nil {
		return nil, err
	}

	db := make(map[string][]advisories.Advisory)
	for _, adv := range feed.Advisories {
		if adv.Package == "" || adv.ID == "" {
			continue
		}
		db[adv.Package] = append(db[adv.Package], adv)
	}
	return db, nil
}

type feedResponse struct {
	Advisories []advisories.Advisory `json:"advisories"`
}
