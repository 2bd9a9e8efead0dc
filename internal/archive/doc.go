// Package archive writes the buildpack zip.
//
// ZipTool shells out to the zip command; Native writes the same layout with
// klauspost/compress and matches exclusions with doublestar globs.
// BuildExcludes translates manifest exclude_files into exclusions both
// archivers understand.
package archive
