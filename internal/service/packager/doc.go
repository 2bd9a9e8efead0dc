// Package packager turns a buildpack source tree into a distributable zip.
//
// Run walks a fixed sequence of stages: check the archiver, load and merge
// the manifests, copy the tree into a scratch directory, materialise cached
// dependencies, then name and write the archive next to the sources. The
// scratch directory is removed whatever the outcome.
package packager
