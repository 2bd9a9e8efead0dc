package manifest

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// listKeys are the top-level sequences Merge concatenates.
var listKeys = []string{"dependencies", "exclude_files", "url_to_dependency_map"}

// rootMapping returns the top-level mapping of a parsed document, or nil.
func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		doc = doc.Content[0]
	}

	if doc.Kind != yaml.MappingNode {
		return nil
	}

	return doc
}

// lookup returns the index of key in mapping.Content, or -1.
func lookup(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}

	return -1
}

// mergeDocuments folds the deprecated document into the primary one. The
// lists in listKeys are concatenated, keys only the deprecated document has
// are appended and every other primary key wins. The inputs are shared with
// the result but never modified.
func mergeDocuments(primary, deprecated *yaml.Node) *yaml.Node {
	if primary == nil || deprecated == nil {
		return nil
	}

	merged := *primary
	merged.Content = slices.Clone(primary.Content)

	for i := 0; i+1 < len(deprecated.Content); i += 2 {
		key, value := deprecated.Content[i], deprecated.Content[i+1]

		switch at := lookup(&merged, key.Value); {
		case at < 0:
			merged.Content = append(merged.Content, key, value)
		case slices.Contains(listKeys, key.Value):
			merged.Content[at+1] = concatSequences(merged.Content[at+1], value)
		}
	}

	return &merged
}

// concatSequences joins two sequence nodes. Null or scalar values count as
// empty lists.
func concatSequences(a, b *yaml.Node) *yaml.Node {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}

	for _, n := range []*yaml.Node{a, b} {
		if n.Kind == yaml.SequenceNode {
			out.Content = append(out.Content, n.Content...)
		}
	}

	return out
}
