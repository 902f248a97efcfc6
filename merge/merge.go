// Package merge combines freshly translated subtrees with previously
// translated files on disk. Incremental translation only produces the
// keys that changed; the merge keeps everything else untouched, then
// prunes keys deleted from the source.
package merge

import (
	"github.com/locsync/locsync/flatpath"
)

// Deep merges incoming into existing and returns the result. When both
// sides hold a mapping under the same key the merge recurses; otherwise
// the incoming value wins outright. Keys present only in existing are
// preserved. Neither input is mutated.
func Deep(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for key, value := range existing {
		out[key] = value
	}

	for key, incomingValue := range incoming {
		existingValue, ok := out[key]
		if ok {
			existingMap, eok := existingValue.(map[string]any)
			incomingMap, iok := incomingValue.(map[string]any)
			if eok && iok {
				out[key] = Deep(existingMap, incomingMap)
				continue
			}
		}
		out[key] = incomingValue
	}
	return out
}

// ApplyIncremental produces the final content of one target-language
// file in incremental mode: the incoming translation is merged over the
// existing file content, then paths deleted from the source are pruned.
// A nil existing tree (missing or unreadable target file) means the
// incoming content becomes the full result.
func ApplyIncremental(existing, incoming map[string]any, deletedPaths []string) (map[string]any, error) {
	var merged map[string]any
	if existing == nil {
		merged = incoming
	} else {
		merged = Deep(existing, incoming)
	}

	if len(deletedPaths) == 0 {
		return merged, nil
	}
	return flatpath.RemovePaths(merged, deletedPaths)
}
