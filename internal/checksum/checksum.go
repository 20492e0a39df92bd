// Package checksum computes document fingerprints.
//
// The fingerprint decides whether a file must be re-extracted on an index
// pass. It is a pure function of content so it is immune to filesystem
// mtime granularity and clock skew.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
