// Package cache provides optional translation caching. The pipeline
// consults the cache before sending a string to the remote service and
// stores fresh translations afterwards, so repeated CI runs over the
// same changed keys do not pay for the same translation twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache is the interface for translation caching.
type Cache interface {
	// Get retrieves a cached translation. Returns "" and false on miss.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// Key builds a cache key from a source string and target language.
// The source text is hashed so arbitrarily long values stay addressable.
func Key(sourceText, targetLang string) string {
	sum := sha256.Sum256([]byte(sourceText))
	return hex.EncodeToString(sum[:]) + ":" + targetLang
}
