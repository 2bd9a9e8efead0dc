// Package manifest reads, merges and writes buildpack manifests.
//
// A manifest names the buildpack language, lists pinned dependencies with
// their checksums, and carries exclusion patterns applied when the archive is
// written. Merging a deprecated manifest concatenates every list and requires
// both documents to declare the same language. ValidateSchema is the
// structural check run before Load; it uses an embedded CUE schema.
package manifest
