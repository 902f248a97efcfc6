package translate

import (
	"path"
	"strings"
)

// Exclusions name keys that pass through untranslated. Excluded keys
// are copied from the source verbatim and never sent to the service.
type Exclusions struct {
	// Keys match the final path segment exactly ("version" excludes
	// both "version" and "app.version").
	Keys []string
	// Paths are glob patterns matched against full dot-paths
	// ("nav.*", "legal.**"); each dot-separated segment is one glob
	// element.
	Paths []string
}

// IsEmpty reports whether no exclusions are configured.
func (e Exclusions) IsEmpty() bool {
	return len(e.Keys) == 0 && len(e.Paths) == 0
}

// Match reports whether the dot-path is excluded from translation.
func (e Exclusions) Match(dotPath string) bool {
	segments := strings.Split(dotPath, ".")
	last := segments[len(segments)-1]
	for _, key := range e.Keys {
		if key == last {
			return true
		}
	}

	// path.Match treats / as the segment separator, which maps
	// one-to-one onto dot-path segments.
	slashed := strings.ReplaceAll(dotPath, ".", "/")
	for _, pattern := range e.Paths {
		p := strings.ReplaceAll(pattern, ".", "/")
		if ok, err := path.Match(p, slashed); err == nil && ok {
			return true
		}
		// "prefix.**" excludes the whole subtree.
		if strings.HasSuffix(p, "/**") {
			prefix := strings.TrimSuffix(p, "/**")
			if slashed == prefix || strings.HasPrefix(slashed, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// Partition splits a flat map into keys to translate and keys that
// pass through verbatim.
func (e Exclusions) Partition(flat map[string]any) (translate, skipped map[string]any) {
	translate = make(map[string]any)
	skipped = make(map[string]any)
	for dotPath, value := range flat {
		if e.Match(dotPath) {
			skipped[dotPath] = value
		} else {
			translate[dotPath] = value
		}
	}
	return translate, skipped
}
