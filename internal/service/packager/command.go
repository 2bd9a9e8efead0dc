package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/oshokin/buildpack-packager/internal/archive"
	"github.com/oshokin/buildpack-packager/internal/cache"
	"github.com/oshokin/buildpack-packager/internal/config"
	"github.com/oshokin/buildpack-packager/internal/fetch"
	"github.com/oshokin/buildpack-packager/internal/logger"
	"github.com/oshokin/buildpack-packager/internal/manifest"
	"github.com/oshokin/buildpack-packager/internal/version"
	"github.com/oshokin/buildpack-packager/internal/workdir"
)

const (
	// DependenciesDir is the directory inside the archive holding cached dependencies.
	DependenciesDir = "dependencies"

	// stagingPrefix marks an archive that is still being written.
	stagingPrefix = ".partial-"
)

// Fetcher downloads dependencies and, optionally, checks that they are reachable.
type Fetcher interface {
	fetch.Fetcher
	fetch.Checker
}

// Option customises a packaging run.
type Option func(*packager)

// WithArchiver replaces the archiver selected by the configuration.
func WithArchiver(a archive.Archiver) Option {
	return func(p *packager) {
		p.archiver = a
	}
}

// WithFetcher replaces the default HTTP/file transport.
func WithFetcher(f Fetcher) Option {
	return func(p *packager) {
		p.fetcher = f
	}
}

// packager holds the collaborators of a single run.
type packager struct {
	cfg      *config.Config
	archiver archive.Archiver
	fetcher  Fetcher
}

// Result describes the artifact produced by a successful run.
type Result struct {
	// Path is the absolute location of the written archive.
	Path string
	// Manifest is the manifest the archive was built from, merged if requested.
	Manifest *manifest.Manifest
}

var errConfigIsNotSet = errors.New("packaging configuration is not set")

// Run packages cfg.RootDir into an archive and returns where it was written.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*Result, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	ctx = logger.WithName(ctx, "buildpack-packager")
	ctx = logger.WithKV(ctx, "mode", cfg.Mode)

	p := &packager{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.archiver == nil {
		p.archiver = defaultArchiver(cfg.Archiver)
	}

	if p.fetcher == nil {
		p.fetcher = fetch.NewTransport(
			fetch.WithTimeout(cfg.FetchTimeout),
			fetch.WithUserAgent(version.UserAgent()),
		)
	}

	res, err := p.run(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Buildpack packaged", "path", res.Path)

	return res, nil
}

func defaultArchiver(kind config.ArchiverKind) archive.Archiver {
	if kind == config.ArchiverNative {
		return archive.NewNative()
	}

	return archive.NewZipTool()
}

// artifact is the archive a run produces, planned before any mutation.
type artifact struct {
	// output is the final archive path under the root directory.
	output string
	// staging receives the archive until it is complete.
	staging string
	// excludes keep manifest patterns and the archive itself out of it.
	excludes []archive.Exclusion
}

func (p *packager) run(ctx context.Context) (*Result, error) {
	if err := p.archiver.Available(); err != nil {
		return nil, err
	}

	m, merged, err := p.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	target, err := p.plan(m)
	if err != nil {
		return nil, err
	}

	if p.cfg.Mode == config.ModeCached && p.cfg.ValidateURIs {
		if err = p.checkURIs(ctx, m); err != nil {
			return nil, err
		}
	}

	work, err := workdir.New()
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := work.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to remove working directory", "path", work.Path(), "error", closeErr)
		}
	}()

	logger.InfoKV(ctx, "Copying buildpack", "from", p.cfg.RootDir, "to", work.Path())

	if err = workdir.CopyTree(p.cfg.RootDir, work.Path()); err != nil {
		return nil, fmt.Errorf("copy buildpack: %w", err)
	}

	if p.cfg.Mode == config.ModeCached {
		if err = p.materialize(ctx, m, work); err != nil {
			return nil, err
		}
	}

	if merged {
		if err = manifest.Write(work.Join(p.manifestName()), m); err != nil {
			return nil, err
		}
	}

	if err = p.assemble(ctx, target, work); err != nil {
		return nil, err
	}

	return &Result{Path: target.output, Manifest: m}, nil
}

// plan reads the version, names the archive and builds its exclusions.
// The archive's own names are excluded so an earlier artifact, or one left
// half-written, is never nested inside the new one.
func (p *packager) plan(m *manifest.Manifest) (*artifact, error) {
	buildpackVersion, err := ReadVersion(p.cfg.RootDir)
	if err != nil {
		return nil, err
	}

	m.Version = buildpackVersion
	name := ArchiveName(m.Language, p.cfg.Mode, buildpackVersion)

	patterns := append(slices.Clone(m.ExcludeFiles), name, stagingPrefix+name)

	excludes, err := archive.BuildExcludes(patterns)
	if err != nil {
		return nil, err
	}

	return &artifact{
		output:   filepath.Join(p.cfg.RootDir, name),
		staging:  filepath.Join(p.cfg.RootDir, stagingPrefix+name),
		excludes: excludes,
	}, nil
}

// manifestName is where the merged manifest goes in the working copy: the
// same relative path the primary manifest has under the root, or
// manifest.yml when it lives elsewhere.
func (p *packager) manifestName() string {
	rel, err := filepath.Rel(p.cfg.RootDir, p.cfg.ManifestPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return config.DefaultManifestFilename
	}

	return rel
}

// loadManifest reads the primary manifest and, when requested, merges the
// deprecated one into it. It performs no writes.
func (p *packager) loadManifest(ctx context.Context) (*manifest.Manifest, bool, error) {
	logger.InfoKV(ctx, "Loading manifest", "path", p.cfg.ManifestPath)

	m, err := p.readManifest(p.cfg.ManifestPath)
	if err != nil {
		return nil, false, err
	}

	if !p.cfg.IncludeDeprecatedManifest {
		return m, false, nil
	}

	logger.InfoKV(ctx, "Merging deprecated manifest", "path", p.cfg.DeprecatedManifestPath)

	deprecated, err := p.readManifest(p.cfg.DeprecatedManifestPath)
	if err != nil {
		return nil, false, err
	}

	m, err = manifest.Merge(m, deprecated)
	if err != nil {
		return nil, false, err
	}

	return m, true, nil
}

func (p *packager) readManifest(path string) (*manifest.Manifest, error) {
	if p.cfg.ValidateSchema {
		if err := manifest.ValidateSchemaFile(path); err != nil {
			return nil, err
		}
	}

	return manifest.Load(path)
}

func (p *packager) checkURIs(ctx context.Context, m *manifest.Manifest) error {
	logger.InfoKV(ctx, "Checking dependency URIs", "count", len(m.Dependencies))

	for _, dep := range m.Dependencies {
		if err := p.fetcher.Check(ctx, dep.URI); err != nil {
			return fmt.Errorf("dependency %s: %w", dep, err)
		}
	}

	return nil
}

// materialize resolves every dependency through the cache in manifest order
// and copies the verified files into the working tree.
func (p *packager) materialize(ctx context.Context, m *manifest.Manifest, work *workdir.Dir) error {
	c := cache.New(p.cfg.CacheDir, p.fetcher)

	logger.InfoKV(ctx, "Materializing dependencies", "count", len(m.Dependencies), "cache", c.Dir())

	dest := work.Join(DependenciesDir)
	if err := os.MkdirAll(dest, cache.DirMode); err != nil {
		return fmt.Errorf("create dependencies directory: %w", err)
	}

	for _, dep := range m.Dependencies {
		path, err := c.Resolve(ctx, dep, p.cfg.ForceDownload)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dep, err)
		}

		err = workdir.CopyFile(path, filepath.Join(dest, cache.Key(dep.URI)))
		if err != nil {
			return fmt.Errorf("copy %s: %w", dep, err)
		}
	}

	return nil
}

// assemble writes the archive next to the final path and only then
// replaces any previous artifact with it.
func (p *packager) assemble(ctx context.Context, target *artifact, work *workdir.Dir) (err error) {
	if err = os.Remove(target.staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale staging archive: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(target.staging)
		}
	}()

	logger.InfoKV(ctx, "Writing archive", "path", target.output, "excludes", len(target.excludes))

	if err = p.archiver.Write(ctx, work.Path(), target.staging, target.excludes); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	if err = os.Rename(target.staging, target.output); err != nil {
		return fmt.Errorf("replace previous archive: %w", err)
	}

	return nil
}
