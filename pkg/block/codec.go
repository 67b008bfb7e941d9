package block

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Cache is the minimal subset of the external block cache the codec needs.
// blockio.Cache satisfies this; it is declared here (rather than imported)
// so this package has no dependency on blockio.
type Cache interface {
	ReadBlock(index uint64, buf []byte) error
	WriteBlock(index uint64, buf []byte) error
	BlockSize() int
}

// Codec serializes and deserializes nodes through a Cache, one fixed-size
// block at a time. It is bit-exact: the same bytes round-trip identically
// regardless of process.
type Codec struct{}

// Load reads block index from cache and decodes it into a Node, verifying
// the checksum stored in the header against the slot region. Unallocated
// blocks are not verified.
func (Codec) Load(cache Cache, index uint64) (*Node, error) {
	buf := make([]byte, cache.BlockSize())
	if err := cache.ReadBlock(index, buf); err != nil {
		return nil, fmt.Errorf("block: read %d: %w", index, err)
	}
	n := fromBytes(buf)
	if n.Kind != Unallocated {
		want := checksum(buf)
		if want != n.Checksum {
			return nil, fmt.Errorf("block: checksum mismatch at %d: got %x want %x", index, n.Checksum, want)
		}
	}
	return n, nil
}

// Store recomputes the checksum and writes node to block index through cache.
func (Codec) Store(cache Cache, index uint64, n *Node) error {
	buf := n.Bytes()
	n.Checksum = checksum(buf)
	n.Header.encode(buf)
	if err := cache.WriteBlock(index, buf); err != nil {
		return fmt.Errorf("block: write %d: %w", index, err)
	}
	return nil
}

// checksum hashes the kind-specific slot region only; the header (including
// the checksum field itself) is never covered, so re-stamping the header
// never invalidates a previously-computed checksum.
func checksum(buf []byte) uint64 {
	return xxhash.Sum64(buf[HeaderSize:])
}
