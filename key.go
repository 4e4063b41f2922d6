package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key names exactly one cache entry. It is a single filesystem-safe
// path segment of the form <sanitized-identity>-<sha256 hex>.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// buildKey combines an operation identity with an input fingerprint.
// SHA-256 is used for the digest: a collision would silently hand one
// invocation another invocation's results, so collision resistance is a
// correctness requirement here, not a performance knob.
func buildKey(identity string, fp Fingerprint) (Key, error) {
	canonical, err := fp.canonical()
	if err != nil {
		return "", fmt.Errorf("failed to serialize fingerprint: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return Key(sanitizeIdentity(identity) + "-" + hex.EncodeToString(sum[:])), nil
}

// sanitizeIdentity maps an operation identity onto the characters safe
// for a single path segment. Dots are rewritten along with everything
// else outside [A-Za-z0-9_-], so no key can ever land in the reserved
// "log." namespace at the cache root.
func sanitizeIdentity(identity string) string {
	if identity == "" {
		return "op"
	}
	var b strings.Builder
	b.Grow(len(identity))
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
