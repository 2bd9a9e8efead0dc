package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// fileMode is used for manifests written into the working copy.
const fileMode = 0o644

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents, path)
}

// Parse decodes a manifest document. source labels errors and Manifest.Source.
func Parse(contents []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}

	m.Source = source
	m.document = rootMapping(&doc)

	return &m, nil
}

// Write serialises m to path. A manifest that was parsed or merged from
// documents is written from those documents, so keys the typed view does not
// model survive; otherwise the typed fields are written.
func Write(path string, m *Manifest) error {
	var v any = m
	if m.document != nil {
		v = m.document
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), buf.Bytes(), fileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Merge folds deprecated into primary. Languages must match; every list is
// concatenated with primary's entries first and nothing is deduplicated.
// Neither input is modified.
func Merge(primary, deprecated *Manifest) (*Manifest, error) {
	if primary.Language != deprecated.Language {
		return nil, &LanguageMismatchError{
			Primary:            sourceName(primary, "manifest.yml"),
			PrimaryLanguage:    primary.Language,
			Deprecated:         sourceName(deprecated, ".deprecated.manifest.yml"),
			DeprecatedLanguage: deprecated.Language,
		}
	}

	return &Manifest{
		Language:           primary.Language,
		Dependencies:       slices.Concat(primary.Dependencies, deprecated.Dependencies),
		ExcludeFiles:       slices.Concat(primary.ExcludeFiles, deprecated.ExcludeFiles),
		URLToDependencyMap: slices.Concat(primary.URLToDependencyMap, deprecated.URLToDependencyMap),
		Version:            primary.Version,
		Source:             primary.Source,
		document:           mergeDocuments(primary.document, deprecated.document),
	}, nil
}

func sourceName(m *Manifest, fallback string) string {
	if m.Source == "" {
		return fallback
	}

	return filepath.Base(m.Source)
}
