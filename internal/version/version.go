package version

import "fmt"

// product names the tool in user agents and version output.
const product = "buildpack-packager"

var (
	// Version is the semantic version of the build. Set with -ldflags "-X".
	Version = "0.1.0-dev"
	// Commit is the short git SHA of the build, or "none".
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", product, Version, Commit, BuildTime)
}

// UserAgent identifies the packager to dependency servers.
func UserAgent() string {
	return product + "/" + Version
}
