package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey returns a fixed-length key for arbitrary input.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// GenerateKey joins a namespace and parts with ':'.
func GenerateKey(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}
