package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed manifest_schema.cue
var manifestSchema string

// schemaRoot is the definition every manifest is unified with.
const schemaRoot = "#Manifest"

// ValidateSchemaFile runs ValidateSchema on the file at path.
func ValidateSchemaFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	return ValidateSchema(data, path)
}

// ValidateSchema checks the structure of a manifest document against the
// embedded CUE schema. It does not look at checksums or URIs.
func ValidateSchema(data []byte, filename string) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema, cue.Filename("manifest_schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal error: compile manifest schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath(schemaRoot))
	if err := def.Err(); err != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", schemaRoot, err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return &ParseError{Path: filename, Err: err}
	}

	doc := ctx.BuildFile(file)
	if err = doc.Err(); err != nil {
		return &ParseError{Path: filename, Err: err}
	}

	if err = def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Path: filename, Violations: violations(err)}
	}

	return nil
}

// violations renders each CUE error as "path: message".
func violations(err error) []string {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []string{err.Error()}
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()

		if path != "" && !strings.HasPrefix(msg, path) {
			msg = path + ": " + msg
		}

		lines = append(lines, msg)
	}

	return lines
}
