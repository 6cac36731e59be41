// Package anonymizer reduces raw voter identities to one-way digests so the
// ledger can test identity reuse without ever storing who voted.
package anonymizer

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Digest normalizes a raw identity (trim, lowercase) and hashes it with the
// same Keccak-256 used for block hashing. The same identity always maps to
// the same digest; the raw value is discarded.
func Digest(rawIdentity string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawIdentity))
	return hex.EncodeToString(crypto.Keccak256([]byte(normalized)))
}
