package webutil

import (
	"crypto/sha256"
	"crypto/subtle"
)

// KeysMatch compares a provided shared secret against the expected one in
// constant time. Both are hashed first so their lengths do not leak.
func KeysMatch(provided, expected string) bool {
	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}
