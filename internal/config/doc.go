// Package config defines the typed packaging configuration and resolves it
// from viper (flags, BUILDPACK_PACKAGER_* environment, optional YAML file).
//
// Ambient defaults such as the user-scoped cache directory are resolved here,
// once, so the packaging core only ever sees explicit fields.
package config
