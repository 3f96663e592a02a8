package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cratelens/cratelens/pkg/cache"
	"github.com/cratelens/cratelens/pkg/manifest"
)

// defaultCacheTTL is how long registry responses are cached.
const defaultCacheTTL = 6 * time.Hour

// loadInputs reads the manifest at path and, when present, the Cargo.lock
// next to it. A missing lockfile is not an error; conflict resolution simply
// has no candidate pool then.
func loadInputs(path string, logger *log.Logger) (*manifest.Manifest, *manifest.Lockfile, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}

	lockPath := filepath.Join(filepath.Dir(path), "Cargo.lock")
	if _, err := os.Stat(lockPath); err != nil {
		logger.Debugf("no lockfile at %s", lockPath)
		return m, nil, nil
	}
	lf, err := manifest.LoadLockfile(lockPath)
	if err != nil {
		logger.Warnf("Ignoring unreadable lockfile: %v", err)
		return m, nil, nil
	}
	return m, lf, nil
}

// newCacheBackend selects the HTTP response cache: Redis when
// CRATELENS_REDIS_URL is set, the file cache otherwise, a no-op cache as the
// last resort.
func newCacheBackend(ctx context.Context, logger *log.Logger) cache.Cache {
	if url := os.Getenv("CRATELENS_REDIS_URL"); url != "" {
		backend, err := cache.NewRedisCache(ctx, url, "cratelens:")
		if err == nil {
			return backend
		}
		logger.Warnf("Redis cache unavailable, falling back to file cache: %v", err)
	}

	dir, err := cache.DefaultDir()
	if err == nil {
		if backend, err := cache.NewFileCache(dir); err == nil {
			return backend
		}
	}
	logger.Warnf("File cache unavailable, caching disabled")
	return cache.NewNullCache()
}

// nopCloser wraps an io.Writer with a no-op Close method, making os.Stdout
// compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path, or stdout when path
// is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
