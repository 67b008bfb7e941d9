// Package block implements the on-disk layout of a single fixed-size page:
// the header every block shares, and the typed slot accessors interior and
// leaf nodes use to address key/pointer and key/value pairs by byte offset.
package block

import "encoding/binary"

// Kind tags the role a block currently plays.
type Kind uint16

const (
	Superblock Kind = iota + 1
	Root
	Interior
	Leaf
	Unallocated
)

func (k Kind) String() string {
	switch k {
	case Superblock:
		return "SUPERBLOCK"
	case Root:
		return "ROOT"
	case Interior:
		return "INTERIOR"
	case Leaf:
		return "LEAF"
	case Unallocated:
		return "UNALLOCATED"
	default:
		return "UNKNOWN"
	}
}

// PtrSize is the on-disk width of a block index.
const PtrSize = 8

// HeaderSize is the fixed prefix every block carries before its kind-specific
// slot region: kind(2) + keysize(2) + valsize(2) + blocksize(4) + rootnode(8)
// + freelist(8) + numkeys(2) + checksum(8).
const HeaderSize = 2 + 2 + 2 + 4 + 8 + 8 + 2 + 8

// leafReserved is the width of the leading sibling-pointer slot leaf blocks
// reserve but never chain through (spec: "do not rely on it").
const leafReserved = PtrSize

// Header is the fixed metadata stamped on every block, redundantly, so any
// block can be sanity-checked in isolation against the superblock's copy.
type Header struct {
	Kind      Kind
	KeySize   uint16
	ValueSize uint16
	BlockSize uint32
	RootNode  uint64
	FreeList  uint64
	NumKeys   uint16
	Checksum  uint64
}

func decodeHeader(data []byte) Header {
	return Header{
		Kind:      Kind(binary.LittleEndian.Uint16(data[0:2])),
		KeySize:   binary.LittleEndian.Uint16(data[2:4]),
		ValueSize: binary.LittleEndian.Uint16(data[4:6]),
		BlockSize: binary.LittleEndian.Uint32(data[6:10]),
		RootNode:  binary.LittleEndian.Uint64(data[10:18]),
		FreeList:  binary.LittleEndian.Uint64(data[18:26]),
		NumKeys:   binary.LittleEndian.Uint16(data[26:28]),
		Checksum:  binary.LittleEndian.Uint64(data[28:36]),
	}
}

func (h Header) encode(data []byte) {
	binary.LittleEndian.PutUint16(data[0:2], uint16(h.Kind))
	binary.LittleEndian.PutUint16(data[2:4], h.KeySize)
	binary.LittleEndian.PutUint16(data[4:6], h.ValueSize)
	binary.LittleEndian.PutUint32(data[6:10], h.BlockSize)
	binary.LittleEndian.PutUint64(data[10:18], h.RootNode)
	binary.LittleEndian.PutUint64(data[18:26], h.FreeList)
	binary.LittleEndian.PutUint16(data[26:28], h.NumKeys)
	binary.LittleEndian.PutUint64(data[28:36], h.Checksum)
}

// InteriorCapacity returns the maximum numkeys an interior/root node can
// hold: floor((blockSize-HeaderSize) / (keySize+PtrSize)).
func InteriorCapacity(blockSize int, keySize int) int {
	return (blockSize - HeaderSize) / (keySize + PtrSize)
}

// LeafCapacity returns the maximum numkeys a leaf node can hold, accounting
// for the reserved (unused) sibling-pointer slot at the head of the region.
func LeafCapacity(blockSize int, keySize, valueSize int) int {
	return (blockSize - HeaderSize - leafReserved) / (keySize + valueSize)
}
