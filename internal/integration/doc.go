// Package integration holds end-to-end tests that package sample buildpacks
// against real HTTP and file dependency sources.
package integration
