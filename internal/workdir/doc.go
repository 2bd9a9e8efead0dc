// Package workdir manages the scratch copy of a buildpack tree that a
// packaging run assembles the archive from.
package workdir
