package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Mode selects whether dependencies are bundled into the archive.
type Mode string

const (
	// ModeUncached packages the buildpack tree only.
	ModeUncached Mode = "uncached"
	// ModeCached additionally bundles every manifest dependency for offline installs.
	ModeCached Mode = "cached"
)

// ArchiverKind selects the archiver implementation.
type ArchiverKind string

const (
	// ArchiverZip shells out to the zip tool.
	ArchiverZip ArchiverKind = "zip"
	// ArchiverNative writes the archive in-process.
	ArchiverNative ArchiverKind = "native"
)

// Config holds everything a single packaging run needs.
// It is built once at the CLI boundary and validated there.
type Config struct {
	// RootDir is the buildpack source tree; the artifact is written here too.
	RootDir string `mapstructure:"root_dir" yaml:"root_dir"`
	// Mode is either uncached or cached.
	Mode Mode `mapstructure:"mode" yaml:"mode"`
	// CacheDir is the persistent dependency cache. Required in cached mode.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
	// ForceDownload re-fetches every dependency even when a cache entry exists.
	ForceDownload bool `mapstructure:"force_download" yaml:"force_download"`
	// ManifestPath is the primary manifest, defaults to RootDir/manifest.yml.
	ManifestPath string `mapstructure:"manifest" yaml:"manifest"`
	// IncludeDeprecatedManifest merges DeprecatedManifestPath into the primary manifest.
	IncludeDeprecatedManifest bool `mapstructure:"use_deprecated_manifest" yaml:"use_deprecated_manifest"`
	// DeprecatedManifestPath defaults to RootDir/.deprecated.manifest.yml.
	DeprecatedManifestPath string `mapstructure:"deprecated_manifest" yaml:"deprecated_manifest"`
	// Archiver picks the zip tool or the in-process writer.
	Archiver ArchiverKind `mapstructure:"archiver" yaml:"archiver"`
	// ValidateSchema runs the manifest schema check before loading.
	ValidateSchema bool `mapstructure:"validate_schema" yaml:"validate_schema"`
	// ValidateURIs checks every dependency URI is reachable before fetching anything.
	ValidateURIs bool `mapstructure:"validate_uris" yaml:"validate_uris"`
	// FetchTimeout bounds a single dependency fetch. Zero means no bound.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

const (
	// DefaultManifestFilename is the primary manifest name under the root dir.
	DefaultManifestFilename = "manifest.yml"

	// DefaultDeprecatedManifestFilename is the deprecated manifest name under the root dir.
	DefaultDeprecatedManifestFilename = ".deprecated.manifest.yml"

	// VersionFilename holds the buildpack version under the root dir.
	VersionFilename = "VERSION"

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "BUILDPACK_PACKAGER"

	// cacheSubdir is joined onto the user's home directory.
	cacheSubdir = ".buildpack-packager/cache"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRootDirRequired is returned when the root directory is missing.
	errRootDirRequired = errors.New("root directory must be provided")
	// errCacheDirRequired is returned when cached mode has no cache directory.
	errCacheDirRequired = errors.New("cache directory must be provided in cached mode")
	// ErrInvalidMode is returned for modes other than uncached and cached.
	ErrInvalidMode = errors.New("invalid packaging mode")
	// ErrInvalidArchiver is returned for unknown archiver kinds.
	ErrInvalidArchiver = errors.New("invalid archiver")
)

// DefaultCacheDir returns the user-scoped cache location.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, filepath.FromSlash(cacheSubdir)), nil
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root_dir", ".")
	v.SetDefault("mode", string(ModeUncached))
	v.SetDefault("archiver", string(ArchiverZip))
	v.SetDefault("validate_schema", true)
	v.SetDefault("log_level", "info")

	if dir, err := DefaultCacheDir(); err == nil {
		v.SetDefault("cache_dir", dir)
	}
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields, fills path defaults and normalises paths.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.RootDir == "" {
		return errRootDirRequired
	}

	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("root directory %s: %w", root, os.ErrInvalid)
	}

	cfg.RootDir = root

	switch cfg.Mode {
	case ModeUncached, ModeCached:
	case "":
		cfg.Mode = ModeUncached
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}

	switch cfg.Archiver {
	case ArchiverZip, ArchiverNative:
	case "":
		cfg.Archiver = ArchiverZip
	default:
		return fmt.Errorf("%w: %q", ErrInvalidArchiver, cfg.Archiver)
	}

	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(root, DefaultManifestFilename)
	}

	if cfg.DeprecatedManifestPath == "" {
		cfg.DeprecatedManifestPath = filepath.Join(root, DefaultDeprecatedManifestFilename)
	}

	if cfg.ManifestPath, err = filepath.Abs(cfg.ManifestPath); err != nil {
		return fmt.Errorf("resolve manifest path: %w", err)
	}

	if cfg.DeprecatedManifestPath, err = filepath.Abs(cfg.DeprecatedManifestPath); err != nil {
		return fmt.Errorf("resolve deprecated manifest path: %w", err)
	}

	if cfg.Mode == ModeCached {
		if cfg.CacheDir == "" {
			return errCacheDirRequired
		}

		if cfg.CacheDir, err = filepath.Abs(cfg.CacheDir); err != nil {
			return fmt.Errorf("resolve cache directory: %w", err)
		}
	}

	if cfg.FetchTimeout < 0 {
		cfg.FetchTimeout = 0
	}

	return nil
}

// ParseMode converts a CLI argument into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeUncached, ModeCached:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}
