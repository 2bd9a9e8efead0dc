package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern reports an exclude pattern that cannot be matched.
var ErrBadPattern = errors.New("invalid exclude pattern")

// Exclusion keeps matching entries out of the archive. Zip is the pattern
// handed to the zip tool, where * also matches '/'. Glob is the equivalent
// doublestar pattern used by the in-process archiver.
type Exclusion struct {
	Zip  string
	Glob string
	// Dir marks exclusions that drop a whole directory.
	Dir bool
}

// Arg renders the exclusion as a zip command-line argument.
func (e Exclusion) Arg() string {
	return "--exclude=" + e.Zip
}

// BuildExcludes turns manifest exclude_files patterns into exclusions.
// A pattern ending in '/' drops that directory at the root and anywhere
// below it; any other pattern drops files with that name at the root and
// anywhere below it. Patterns are otherwise passed through verbatim, but
// each must be a valid glob.
func BuildExcludes(patterns []string) ([]Exclusion, error) {
	excludes := make([]Exclusion, 0, 2*len(patterns))

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}

		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			excludes = append(excludes,
				Exclusion{Zip: pattern + "*", Glob: dir, Dir: true},
				Exclusion{Zip: "*/" + pattern + "*", Glob: "**/" + dir, Dir: true},
			)

			continue
		}

		excludes = append(excludes,
			Exclusion{Zip: pattern, Glob: pattern},
			Exclusion{Zip: "*/" + pattern, Glob: "**/" + pattern},
		)
	}

	return excludes, nil
}

// Args renders every exclusion as a zip command-line argument.
func Args(excludes []Exclusion) []string {
	args := make([]string, 0, len(excludes))
	for _, e := range excludes {
		args = append(args, e.Arg())
	}

	return args
}
