package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/buildpack-packager/internal/config"
	"github.com/oshokin/buildpack-packager/internal/logger"
	"github.com/oshokin/buildpack-packager/internal/service/packager"
	"github.com/oshokin/buildpack-packager/internal/version"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"root-dir":                "root_dir",
	"cache-dir":               "cache_dir",
	"force-download":          "force_download",
	"manifest":                "manifest",
	"use-deprecated-manifest": "use_deprecated_manifest",
	"deprecated-manifest":     "deprecated_manifest",
	"archiver":                "archiver",
	"validate-uris":           "validate_uris",
	"fetch-timeout":           "fetch_timeout",
	"log-level":               "log_level",
}

var (
	// configPath to an optional YAML settings file.
	configPath string

	// skipSchema disables manifest schema validation.
	skipSchema bool

	// rootCmd represents the base command for packaging a buildpack.
	rootCmd = &cobra.Command{
		Use:   "buildpack-packager [uncached|cached]",
		Short: "Package a buildpack into a distributable zip",
		Long: "Package the buildpack in --root-dir into <language>_buildpack[-cached]-v<version>.zip. " +
			"Cached mode downloads, verifies and bundles every dependency listed in the manifest.",
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     []string{string(config.ModeUncached), string(config.ModeCached)},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}

			_, err = packager.Run(ctx, cfg)

			return err
		},
	}
)

// Execute runs the buildpack-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Packaging failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig merges defaults, the settings file, environment and flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	}

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if len(args) > 0 {
		mode, err := config.ParseMode(args[0])
		if err != nil {
			return nil, err
		}

		v.Set("mode", string(mode))
	}

	if skipSchema {
		v.Set("validate_schema", false)
	}

	level, ok := logger.ParseLogLevel(v.GetString("log_level"))
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", v.GetString("log_level"))
	}

	logger.SetLevel(level)

	return config.Load(v)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML settings file")
	flags.String("root-dir", ".", "buildpack directory to package")
	flags.String("cache-dir", "", "dependency cache directory (default $HOME/.buildpack-packager/cache)")
	flags.Bool("force-download", false, "download dependencies even when cached")
	flags.String("manifest", "", "manifest path (default <root-dir>/manifest.yml)")
	flags.Bool("use-deprecated-manifest", false, "merge the deprecated manifest into the package")
	flags.String("deprecated-manifest", "", "deprecated manifest path (default <root-dir>/.deprecated.manifest.yml)")
	flags.String("archiver", string(config.ArchiverZip), "archiver to use: zip or native")
	flags.Bool("validate-uris", false, "check that every dependency URI is reachable before downloading")
	flags.BoolVar(&skipSchema, "skip-schema", false, "skip manifest schema validation")
	flags.Duration("fetch-timeout", 0, "per-dependency download timeout, 0 means none")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
}
