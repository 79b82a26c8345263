// Package cache provides translation caching implementations.
//
// Cache keys are produced by loctool.CacheKey, which couples the source
// text hash with the target locale so the same English string cached for
// ru_RU never leaks into a de_DE run.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}
