// Package sha256 provides SHA-256 digests and derived deterministic seeds.
package sha256

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Hasher produces hex digests and seeds from text keys.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Short returns the first n hex characters of the digest of key.
func (h *Hasher) Short(key string, n int) string {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(digest) {
		return digest
	}
	return digest[:n]
}

// Seed derives two 64-bit words from the joined parts, suitable for seeding a PCG source.
func (h *Hasher) Seed(parts ...string) (uint64, uint64) {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}
