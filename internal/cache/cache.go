package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/buildpack-packager/internal/fetch"
	"github.com/oshokin/buildpack-packager/internal/logger"
	"github.com/oshokin/buildpack-packager/internal/manifest"
)

const (
	// maxRefetches caps how often a stale entry is re-downloaded in one Resolve call.
	maxRefetches = 1

	// DirMode is used when creating the cache directory.
	DirMode os.FileMode = 0o755

	// EntryMode is the mode of committed cache entries.
	EntryMode os.FileMode = 0o644
)

// keyReplacer maps reserved path characters in a URI to underscores.
//
//nolint:gochecknoglobals // Immutable lookup table.
var keyReplacer = strings.NewReplacer(":", "_", "/", "_")

// Key translates a dependency URI into its cache entry name.
func Key(uri string) string {
	return keyReplacer.Replace(uri)
}

// Cache maps dependency URIs to verified files in a flat directory that
// outlives a single packaging run. Entries are never pruned.
//
// Nothing guards against another process writing the same entry at the same
// time. Downloads land in a private temporary file first and are then
// renamed over the entry, so a reader sees either the old or the new bytes,
// and a mismatching entry is healed by the next Resolve.
type Cache struct {
	// dir holds one file per distinct URI.
	dir string
	// fetcher downloads missing or stale entries.
	fetcher fetch.Fetcher
}

// New returns a Cache rooted at dir. The directory is created lazily.
func New(dir string, fetcher fetch.Fetcher) *Cache {
	return &Cache{
		dir:     filepath.Clean(dir),
		fetcher: fetcher,
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the entry path for uri, whether or not it exists.
func (c *Cache) Path(uri string) string {
	return filepath.Join(c.dir, Key(uri))
}

// Resolve returns the path of a cache entry whose content matches dep's
// checksums, downloading it when missing, when forceDownload is set, or once
// more when an existing entry turns out to be stale.
func (c *Cache) Resolve(ctx context.Context, dep manifest.Dependency, forceDownload bool) (string, error) {
	ctx = logger.WithKV(ctx, "dependency", dep.String())

	if err := os.MkdirAll(c.dir, DirMode); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	target := c.Path(dep.URI)

	fresh := false

	exists, err := fileExists(target)
	if err != nil {
		return "", err
	}

	if forceDownload || !exists {
		logger.DebugKV(ctx, "Downloading dependency", "uri", dep.URI, "forced", forceDownload)

		if err = c.download(ctx, dep.URI, target); err != nil {
			return "", err
		}

		fresh = true
	} else {
		logger.DebugKV(ctx, "Using cached dependency", "path", target)
	}

	for refetches := 0; ; refetches++ {
		err = Verify(target, dep)
		if err == nil {
			return target, nil
		}

		if !errors.Is(err, ErrChecksumMismatch) {
			return "", err
		}

		if fresh || refetches >= maxRefetches {
			return "", err
		}

		logger.WarnKV(ctx, "Cached dependency is stale, downloading it again", "path", target)

		if err = os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove stale cache entry: %w", err)
		}

		if err = c.download(ctx, dep.URI, target); err != nil {
			return "", err
		}

		fresh = true
	}
}

// download fetches uri into a temporary file next to target and then
// renames it over target.
func (c *Cache) download(ctx context.Context, uri, target string) error {
	staged, err := os.CreateTemp(c.dir, "."+filepath.Base(target)+".*.partial")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}

	stagedPath := staged.Name()
	_ = staged.Close()

	defer func() {
		_ = os.Remove(stagedPath)
	}()

	if err = c.fetcher.Fetch(ctx, uri, stagedPath); err != nil {
		return err
	}

	return commit(stagedPath, target)
}

// commit moves the staged bytes onto target through go-update, which writes
// a sibling file and swaps it in with renames.
func commit(stagedPath, target string) error {
	staged, err := os.Open(filepath.Clean(stagedPath))
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}

	defer func() {
		_ = staged.Close()
	}()

	// go-update moves the current target aside before renaming the new file in.
	exists, err := fileExists(target)
	if err != nil {
		return err
	}

	if !exists {
		if err = os.WriteFile(target, nil, EntryMode); err != nil {
			return fmt.Errorf("create cache entry: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: EntryMode,
	}

	if err = goupdate.Apply(staged, options); err != nil {
		return fmt.Errorf("commit cache entry %s: %w", filepath.Base(target), err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}
