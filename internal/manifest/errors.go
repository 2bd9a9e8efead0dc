package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is wrapped by ParseError.
	ErrParse = errors.New("manifest cannot be parsed")
	// ErrLanguageMismatch is wrapped by LanguageMismatchError.
	ErrLanguageMismatch = errors.New("manifest languages do not match")
	// ErrSchema is wrapped by SchemaError.
	ErrSchema = errors.New("manifest does not follow proper format")
)

// ParseError reports a manifest document that is not readable YAML.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

// Unwrap lets callers match both ErrParse and the decoder error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// LanguageMismatchError reports two manifests that cannot be merged.
type LanguageMismatchError struct {
	Primary            string
	PrimaryLanguage    string
	Deprecated         string
	DeprecatedLanguage string
}

// Error implements the error interface.
func (e *LanguageMismatchError) Error() string {
	return fmt.Sprintf("language specified in %s (%q) and %s (%q) do not match",
		e.Primary, e.PrimaryLanguage, e.Deprecated, e.DeprecatedLanguage)
}

// Unwrap returns ErrLanguageMismatch.
func (e *LanguageMismatchError) Unwrap() error { return ErrLanguageMismatch }

// SchemaError lists every schema violation found in one document.
type SchemaError struct {
	Path       string
	Violations []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Path, ErrSchema)
	for _, v := range e.Violations {
		msg += "\n  " + v
	}

	return msg
}

// Unwrap returns ErrSchema.
func (e *SchemaError) Unwrap() error { return ErrSchema }
