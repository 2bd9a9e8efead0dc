package manifest

import "gopkg.in/yaml.v3"

// Manifest describes a buildpack: its language, pinned dependencies and the
// files left out of the archive.
type Manifest struct {
	// Language names the buildpack and prefixes the archive name.
	Language string `yaml:"language"`
	// Dependencies are bundled, in order, in cached mode.
	Dependencies []Dependency `yaml:"dependencies"`
	// ExcludeFiles are file and directory patterns kept out of the archive.
	ExcludeFiles []string `yaml:"exclude_files"`
	// URLToDependencyMap is carried through untouched for the buildpack runtime.
	URLToDependencyMap []URLMapping `yaml:"url_to_dependency_map"`

	// Version comes from the VERSION file, not from the document.
	Version string `yaml:"-"`
	// Source identifies where the manifest was read from.
	Source string `yaml:"-"`

	// document is the whole top-level mapping, including keys not modelled above.
	document *yaml.Node
}

// Dependency is a pinned third-party binary.
type Dependency struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version"`
	URI      string   `yaml:"uri"`
	MD5      string   `yaml:"md5"`
	SHA256   string   `yaml:"sha256,omitempty"`
	CFStacks []string `yaml:"cf_stacks,omitempty"`
}

// URLMapping maps a download URL pattern to a dependency name and version.
type URLMapping struct {
	Match   string `yaml:"match"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// String identifies the dependency in log lines and errors.
func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}
