package archive

import (
	"context"
	"errors"
	"fmt"
)

// Archiver writes the contents of sourceDir into a zip file at outputPath,
// leaving out entries matched by excludes.
type Archiver interface {
	// Available reports whether the archiver can run at all.
	Available() error
	Write(ctx context.Context, sourceDir, outputPath string, excludes []Exclusion) error
}

// ErrMissingTool is wrapped by MissingToolError.
var ErrMissingTool = errors.New("required tool is not installed")

// MissingToolError reports an external tool that could not be found.
type MissingToolError struct {
	Tool string
	Hint string
	Err  error
}

// Error implements the error interface.
func (e *MissingToolError) Error() string {
	msg := fmt.Sprintf("%s is not installed", e.Tool)
	if e.Hint != "" {
		msg += "\nTry: " + e.Hint + "\nAnd then rerun"
	}

	return msg
}

// Unwrap lets callers match ErrMissingTool and the lookup error.
func (e *MissingToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMissingTool}
	}

	return []error{ErrMissingTool, e.Err}
}
