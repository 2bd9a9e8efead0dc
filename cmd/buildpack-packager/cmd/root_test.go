package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/buildpack-packager/internal/config"
)

// newTestCommand returns a fresh command carrying the same flags as rootCmd.
func newTestCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().AddFlagSet(rootCmd.Flags())

	return c
}

// TestLoadConfig_Precedence layers defaults, environment and flags.
func TestLoadConfig_Precedence(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()

	t.Setenv("HOME", home)
	t.Setenv("BUILDPACK_PACKAGER_ROOT_DIR", root)
	t.Setenv("BUILDPACK_PACKAGER_ARCHIVER", "native")

	c := newTestCommand()
	require.NoError(t, c.Flags().Set("fetch-timeout", "30s"))

	t.Cleanup(func() {
		_ = c.Flags().Set("fetch-timeout", "0s")
		c.Flags().Lookup("fetch-timeout").Changed = false
	})

	cfg, err := loadConfig(c, []string{"cached"})
	require.NoError(t, err)
	require.Equal(t, root, cfg.RootDir)
	require.Equal(t, config.ModeCached, cfg.Mode)
	require.Equal(t, config.ArchiverNative, cfg.Archiver)
	require.Equal(t, filepath.Join(home, ".buildpack-packager", "cache"), cfg.CacheDir)
	require.Equal(t, filepath.Join(root, "manifest.yml"), cfg.ManifestPath)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.True(t, cfg.ValidateSchema)
}

// TestLoadConfig_SettingsFile reads a YAML settings file.
func TestLoadConfig_SettingsFile(t *testing.T) {
	root := t.TempDir()
	settings := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(
		"root_dir: "+root+"\ncache_dir: "+filepath.Join(root, "cache")+"\nforce_download: true\n"), 0o600))

	configPath = settings

	t.Cleanup(func() {
		configPath = ""
	})

	cfg, err := loadConfig(newTestCommand(), []string{"cached"})
	require.NoError(t, err)
	require.Equal(t, root, cfg.RootDir)
	require.Equal(t, filepath.Join(root, "cache"), cfg.CacheDir)
	require.True(t, cfg.ForceDownload)
}

// TestLoadConfig_InvalidArchiver is rejected before packaging starts.
func TestLoadConfig_InvalidArchiver(t *testing.T) {
	t.Setenv("BUILDPACK_PACKAGER_ROOT_DIR", t.TempDir())
	t.Setenv("BUILDPACK_PACKAGER_ARCHIVER", "tar")

	_, err := loadConfig(newTestCommand(), nil)
	require.ErrorIs(t, err, config.ErrInvalidArchiver)
}
