package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and rejected values.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))
	require.Error(t, Validate(new(Config)))

	root := t.TempDir()

	cfg := &Config{RootDir: root}
	require.NoError(t, Validate(cfg))
	require.Equal(t, ModeUncached, cfg.Mode)
	require.Equal(t, ArchiverZip, cfg.Archiver)
	require.Equal(t, filepath.Join(root, DefaultManifestFilename), cfg.ManifestPath)
	require.Equal(t, filepath.Join(root, DefaultDeprecatedManifestFilename), cfg.DeprecatedManifestPath)

	err := Validate(&Config{RootDir: root, Mode: "offline"})
	require.ErrorIs(t, err, ErrInvalidMode)

	err = Validate(&Config{RootDir: root, Archiver: "tar"})
	require.ErrorIs(t, err, ErrInvalidArchiver)

	err = Validate(&Config{RootDir: root, Mode: ModeCached})
	require.Error(t, err)

	err = Validate(&Config{RootDir: filepath.Join(root, "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestValidate_CachedResolvesCacheDir makes the cache path absolute at construction time.
func TestValidate_CachedResolvesCacheDir(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		RootDir:  t.TempDir(),
		Mode:     ModeCached,
		CacheDir: "relative-cache",
	}

	require.NoError(t, Validate(cfg))
	require.True(t, filepath.IsAbs(cfg.CacheDir))
}

// TestLoad reads a YAML settings file through viper on top of the defaults.
func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "packager.yaml")

	contents := "root_dir: " + dir + "\n" +
		"mode: cached\n" +
		"cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"force_download: true\n" +
		"archiver: native\n" +
		"fetch_timeout: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, ModeCached, cfg.Mode)
	require.Equal(t, ArchiverNative, cfg.Archiver)
	require.True(t, cfg.ForceDownload)
	require.True(t, cfg.ValidateSchema)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.Equal(t, filepath.Join(dir, "cache"), cfg.CacheDir)
}

// TestParseMode accepts only the two packaging modes.
func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("cached")
	require.NoError(t, err)
	require.Equal(t, ModeCached, m)

	_, err = ParseMode("offline")
	require.ErrorIs(t, err, ErrInvalidMode)
}
