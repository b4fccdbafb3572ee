package sui

import (
	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// Digest returns the base58 blake2b-256 fingerprint of b. It identifies a
// composed transaction in caches and API responses; it is not the on-chain
// transaction digest, which also covers sender and gas data.
func Digest(b []byte) string {
	sum := blake2b.Sum256(b)
	return base58.Encode(sum[:])
}
