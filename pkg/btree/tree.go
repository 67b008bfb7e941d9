// Package btree is the core of the module: the disk-backed B-tree engine
// that turns a pluggable block cache into a fixed-size-key/value index. It
// implements the recursive descent, node splitting, ancestor separator
// insertion, and the free-list-managed allocator described in spec.md.
package btree

import (
	"github.com/ephilipz/blocktree/pkg/block"
	"github.com/ephilipz/blocktree/pkg/blockio"
	"github.com/ephilipz/blocktree/pkg/logging"
)

const superblockIndex = 0

// Tree is the public handle onto one mounted store. The zero value is not
// usable; construct with New.
type Tree struct {
	keySize   int
	valueSize int
	cache     blockio.Cache
	codec     block.Codec
	log       logging.Logger

	superblock *block.Node
}

// New constructs a Tree bound to cache, with the given fixed key and value
// sizes. Call Attach before any other operation.
func New(keySize, valueSize int, cache blockio.Cache) *Tree {
	return &Tree{
		keySize:   keySize,
		valueSize: valueSize,
		cache:     cache,
		log:       logging.Nop{},
	}
}

// WithLogger attaches a logger, returning the receiver for chaining.
func (t *Tree) WithLogger(l logging.Logger) *Tree {
	t.log = l
	return t
}

func (t *Tree) blockSize() int { return t.cache.BlockSize() }

func (t *Tree) load(index uint64) (*block.Node, error) {
	n, err := t.codec.Load(t.cache, index)
	if err != nil {
		return nil, newErr("load", IO, err)
	}
	return n, nil
}

func (t *Tree) store(index uint64, n *block.Node) error {
	if err := t.codec.Store(t.cache, index, n); err != nil {
		return newErr("store", IO, err)
	}
	return nil
}

func (t *Tree) newNode(kind block.Kind) *block.Node {
	return block.New(kind, t.keySize, t.valueSize, t.blockSize())
}

// Attach requires initblock == 0. With create=true it formats block 0 as the
// superblock, block 1 as an empty root, and every remaining block as a
// singly linked free list terminated at 0. With create=false it simply
// loads block 0. Either way the in-memory superblock copy is populated.
func (t *Tree) Attach(initblock uint64, create bool) error {
	if initblock != superblockIndex {
		return newErr("Attach", Insane, nil)
	}

	if create {
		numBlocks := t.cache.NumBlocks()
		if numBlocks < 3 {
			return newErr("Attach", NoSpace, nil)
		}

		sb := t.newNode(block.Superblock)
		sb.RootNode = 1
		sb.FreeList = 2
		sb.NumKeys = 0
		t.cache.NotifyAllocate(superblockIndex)
		if err := t.store(superblockIndex, sb); err != nil {
			return err
		}

		root := t.newNode(block.Root)
		root.RootNode = 1
		root.FreeList = 2
		root.NumKeys = 0
		t.cache.NotifyAllocate(1)
		if err := t.store(1, root); err != nil {
			return err
		}

		for i := uint64(2); i < numBlocks; i++ {
			free := t.newNode(block.Unallocated)
			free.RootNode = 1
			if i+1 == numBlocks {
				free.FreeList = 0
			} else {
				free.FreeList = i + 1
			}
			if err := t.store(i, free); err != nil {
				return err
			}
		}
	}

	sb, err := t.load(superblockIndex)
	if err != nil {
		return err
	}
	if sb.Kind != block.Superblock {
		return newErr("Attach", Insane, nil)
	}
	t.superblock = sb
	t.keySize = int(sb.KeySize)
	t.valueSize = int(sb.ValueSize)
	return nil
}

// Detach persists the superblock and reports its block index.
func (t *Tree) Detach() (uint64, error) {
	if err := t.store(superblockIndex, t.superblock); err != nil {
		return 0, err
	}
	return superblockIndex, nil
}
