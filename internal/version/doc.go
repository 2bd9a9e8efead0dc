// Package version exposes build metadata for buildpack-packager.
//
// Version, Commit and BuildTime are injected with -ldflags at release time
// and keep development defaults otherwise.
package version
