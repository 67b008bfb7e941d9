package block

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfRange is returned by a slot accessor when the requested index is
// outside the node's current numkeys/capacity bounds.
var ErrOutOfRange = errors.New("block: slot index out of range")

// Node is a typed view over one block's raw bytes. It never persists itself;
// callers go through Codec.Load/Store for that.
type Node struct {
	Header
	data []byte
}

// New allocates a zeroed node of the given kind sized for blockSize, with
// key/value sizes fixed for the life of the store.
func New(kind Kind, keySize, valueSize, blockSize int) *Node {
	n := &Node{
		Header: Header{
			Kind:      kind,
			KeySize:   uint16(keySize),
			ValueSize: uint16(valueSize),
			BlockSize: uint32(blockSize),
		},
		data: make([]byte, blockSize),
	}
	return n
}

// fromBytes wraps a raw block buffer as a Node, decoding its header. The
// slice is retained, not copied; callers must not mutate it concurrently.
func fromBytes(data []byte) *Node {
	return &Node{Header: decodeHeader(data), data: data}
}

// Bytes returns the node's backing page, re-stamping the header first.
func (n *Node) Bytes() []byte {
	n.Header.encode(n.data)
	return n.data
}

func (n *Node) slotSizeInterior() int {
	return int(n.KeySize) + PtrSize
}

func (n *Node) slotSizeLeaf() int {
	return int(n.KeySize) + int(n.ValueSize)
}

// Capacity returns the maximum numkeys this node's kind and sizes allow.
func (n *Node) Capacity() int {
	switch n.Kind {
	case Root, Interior:
		return InteriorCapacity(int(n.BlockSize), int(n.KeySize))
	case Leaf:
		return LeafCapacity(int(n.BlockSize), int(n.KeySize), int(n.ValueSize))
	default:
		return 0
	}
}

// PtrOffset returns the byte offset of pointer i (0 <= i <= numkeys) in an
// interior/root node.
func (n *Node) PtrOffset(i int) int {
	return HeaderSize + i*n.slotSizeInterior()
}

// KeyOffset returns the byte offset of key i. For interior/root nodes it
// follows the pointer at the same index; for leaf nodes it is the start of
// the (key,value) pair.
func (n *Node) KeyOffset(i int) int {
	switch n.Kind {
	case Root, Interior:
		return HeaderSize + i*n.slotSizeInterior() + PtrSize
	default:
		return HeaderSize + leafReserved + i*n.slotSizeLeaf()
	}
}

// ValOffset returns the byte offset of value i in a leaf node.
func (n *Node) ValOffset(i int) int {
	return HeaderSize + leafReserved + i*n.slotSizeLeaf() + int(n.KeySize)
}

func (n *Node) checkKeyIndex(i int) error {
	if i < 0 || i >= int(n.NumKeys) {
		return fmt.Errorf("%w: key %d (numkeys=%d)", ErrOutOfRange, i, n.NumKeys)
	}
	return nil
}

func (n *Node) checkPtrIndex(i int) error {
	if i < 0 || i > int(n.NumKeys) {
		return fmt.Errorf("%w: ptr %d (numkeys=%d)", ErrOutOfRange, i, n.NumKeys)
	}
	return nil
}

// Key returns a copy of key i.
func (n *Node) Key(i int) ([]byte, error) {
	if err := n.checkKeyIndex(i); err != nil {
		return nil, err
	}
	off := n.KeyOffset(i)
	out := make([]byte, n.KeySize)
	copy(out, n.data[off:off+int(n.KeySize)])
	return out, nil
}

// SetKey writes key i in place.
func (n *Node) SetKey(i int, key []byte) error {
	if err := n.checkKeyIndex(i); err != nil {
		return err
	}
	if len(key) != int(n.KeySize) {
		return fmt.Errorf("block: key length %d != %d", len(key), n.KeySize)
	}
	off := n.KeyOffset(i)
	copy(n.data[off:off+int(n.KeySize)], key)
	return nil
}

// Ptr returns child pointer i (0 <= i <= numkeys) of an interior/root node.
func (n *Node) Ptr(i int) (uint64, error) {
	if err := n.checkPtrIndex(i); err != nil {
		return 0, err
	}
	off := n.PtrOffset(i)
	return binary.LittleEndian.Uint64(n.data[off : off+PtrSize]), nil
}

// SetPtr writes child pointer i.
func (n *Node) SetPtr(i int, ptr uint64) error {
	if err := n.checkPtrIndex(i); err != nil {
		return err
	}
	off := n.PtrOffset(i)
	binary.LittleEndian.PutUint64(n.data[off:off+PtrSize], ptr)
	return nil
}

// Val returns a copy of value i of a leaf node.
func (n *Node) Val(i int) ([]byte, error) {
	if err := n.checkKeyIndex(i); err != nil {
		return nil, err
	}
	off := n.ValOffset(i)
	out := make([]byte, n.ValueSize)
	copy(out, n.data[off:off+int(n.ValueSize)])
	return out, nil
}

// SetVal writes value i of a leaf node in place.
func (n *Node) SetVal(i int, val []byte) error {
	if err := n.checkKeyIndex(i); err != nil {
		return err
	}
	if len(val) != int(n.ValueSize) {
		return fmt.Errorf("block: value length %d != %d", len(val), n.ValueSize)
	}
	off := n.ValOffset(i)
	copy(n.data[off:off+int(n.ValueSize)], val)
	return nil
}
