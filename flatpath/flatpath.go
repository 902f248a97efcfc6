// Package flatpath converts between nested locale trees and flat
// dot-path maps.
//
// A nested tree like:
//
//	{"nav": {"home": "Home", "about": "About"}, "greeting": "Hello"}
//
// flattens to:
//
//	{"nav.home": "Home", "nav.about": "About", "greeting": "Hello"}
//
// Only mapping values are descended into. Arrays, strings, numbers,
// booleans and null are opaque leaves and pass through unchanged.
// Keys containing a literal dot are rejected: a dotted key is
// indistinguishable from a nesting boundary once flattened, and a
// silent mis-merge is worse than an up-front error.
package flatpath

import (
	"fmt"
	"sort"
	"strings"
)

// Separator joins nested keys in flattened paths.
const Separator = "."

// Flatten converts a nested tree into a flat dot-path map.
// Every leaf of the tree, and only leaves, appears in the result.
func Flatten(tree map[string]any) (map[string]any, error) {
	flat := make(map[string]any)
	if err := flattenInto(flat, "", tree); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenInto(flat map[string]any, prefix string, tree map[string]any) error {
	for key, value := range tree {
		if strings.Contains(key, Separator) {
			return fmt.Errorf("key %q contains a literal %q: ambiguous with a nesting boundary", key, Separator)
		}

		path := key
		if prefix != "" {
			path = prefix + Separator + key
		}

		if child, ok := value.(map[string]any); ok {
			if err := flattenInto(flat, path, child); err != nil {
				return err
			}
			continue
		}
		flat[path] = value
	}
	return nil
}

// Unflatten rebuilds a nested tree from a flat dot-path map.
// Round-trips with Flatten. If two paths collide ambiguously (one path
// is a prefix of another), the last write wins; valid locale files do
// not contain such collisions.
func Unflatten(flat map[string]any) map[string]any {
	tree := make(map[string]any)
	for _, path := range sortedPaths(flat) {
		segments := strings.Split(path, Separator)
		node := tree
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = flat[path]
	}
	return tree
}

// ExtractSubset returns a tree containing only the leaves whose paths
// appear in the given set. Paths absent from the tree are skipped.
func ExtractSubset(tree map[string]any, paths []string) (map[string]any, error) {
	flat, err := Flatten(tree)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}

	subset := make(map[string]any)
	for path, value := range flat {
		if want[path] {
			subset[path] = value
		}
	}
	return Unflatten(subset), nil
}

// RemovePaths returns a tree with the given leaf paths deleted.
// Intermediate nodes left empty by the deletion do not survive,
// because the tree is rebuilt from the remaining leaves.
func RemovePaths(tree map[string]any, paths []string) (map[string]any, error) {
	flat, err := Flatten(tree)
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		delete(flat, p)
	}
	return Unflatten(flat), nil
}

// Paths returns the sorted dot-paths of all leaves in the tree.
func Paths(tree map[string]any) ([]string, error) {
	flat, err := Flatten(tree)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func sortedPaths(flat map[string]any) []string {
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	// Deterministic rebuild order; also keeps last-write-wins stable.
	sort.Strings(paths)
	return paths
}
