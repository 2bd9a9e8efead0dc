// Package cache implements the persistent dependency cache.
//
// Each dependency URI maps to one file in a flat directory (see Key). Resolve
// only hands out entries whose MD5 (and optional SHA-256) match the manifest;
// a stale entry is downloaded again at most once per call before the
// mismatch is reported.
package cache
