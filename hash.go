package loctool

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a translation cache key from a source text hash and
// target locale. Translations of the same text into different locales never
// collide.
func CacheKey(hash, targetLocale string) string {
	return hash + ":" + targetLocale
}
