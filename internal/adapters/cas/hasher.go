// Package cas implements content fingerprints and the content-addressed transform caches.
package cas

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes xxhash fingerprints.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Sum fingerprints the given parts. Each part is length-prefixed so that
// ("ab", "c") and ("a", "bc") produce different fingerprints.
func (h *Hasher) Sum(parts ...string) string {
	digest := xxhash.New()
	var size [8]byte
	for _, part := range parts {
		binary.LittleEndian.PutUint64(size[:], uint64(len(part)))
		_, _ = digest.Write(size[:])
		_, _ = digest.WriteString(part)
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}
