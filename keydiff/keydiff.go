// Package keydiff classifies the keys of two locale tree versions as
// added, modified or deleted. The classification drives incremental
// translation: only added and modified keys are sent to the remote
// service, deleted keys are pruned from existing translations.
package keydiff

import (
	"reflect"
	"sort"

	"github.com/locsync/locsync/flatpath"
)

// ChangeSet holds the three disjoint key sets produced by Diff.
// A path present in both versions with an equal value appears in none.
type ChangeSet struct {
	// Added paths are present only in the new version.
	Added []string
	// Modified paths are present in both versions with differing values.
	Modified []string
	// Deleted paths are present only in the old version.
	Deleted []string
}

// IsEmpty reports whether no key changed between the two versions.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// NeedsTranslation returns the paths whose values must be translated:
// added and modified keys, in sorted order.
func (c *ChangeSet) NeedsTranslation() []string {
	paths := make([]string, 0, len(c.Added)+len(c.Modified))
	paths = append(paths, c.Added...)
	paths = append(paths, c.Modified...)
	sort.Strings(paths)
	return paths
}

// Stats returns (added, modified, deleted) counts.
func (c *ChangeSet) Stats() (added, modified, deleted int) {
	return len(c.Added), len(c.Modified), len(c.Deleted)
}

// Diff compares two versions of a source tree. Value comparison is
// deep, so nested arrays or objects carried as opaque leaves compare
// by content rather than identity. Both trees must be flattenable
// (no literal-dot keys).
//
// Callers with no prior revision must not pass an empty old tree:
// that would classify every key as added, which translates the same
// set of keys but logs the wrong reason. Branch to full-file mode
// before calling Diff.
func Diff(oldTree, newTree map[string]any) (*ChangeSet, error) {
	oldFlat, err := flatpath.Flatten(oldTree)
	if err != nil {
		return nil, err
	}
	newFlat, err := flatpath.Flatten(newTree)
	if err != nil {
		return nil, err
	}

	cs := &ChangeSet{}

	for path, newValue := range newFlat {
		oldValue, ok := oldFlat[path]
		if !ok {
			cs.Added = append(cs.Added, path)
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			cs.Modified = append(cs.Modified, path)
		}
	}

	for path := range oldFlat {
		if _, ok := newFlat[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Deleted)
	return cs, nil
}
