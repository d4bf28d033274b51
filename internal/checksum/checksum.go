// Package checksum computes note digests used as ETags and If-Match values.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns sum as a quoted HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Match reports whether tag names the current digest of data. tag may be a
// bare digest, a quoted or weak entity tag, or "*".
func Match(data []byte, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return true
	}
	tag = strings.Trim(strings.TrimPrefix(tag, "W/"), `"`)
	return tag == Sum(data)
}
