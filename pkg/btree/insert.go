package btree

import "github.com/ephilipz/blocktree/pkg/block"

// Insert binds value to key. At-most-one binding per key is enforced: a
// key that already exists returns Conflict and leaves the store untouched.
func (t *Tree) Insert(key, value []byte) error {
	if err := t.checkKeySize(key); err != nil {
		return err
	}
	if err := t.checkValueSize(value); err != nil {
		return err
	}

	_, err := t.Lookup(key)
	if err == nil {
		return newErr("Insert", Conflict, nil)
	}
	if !Is(err, Nonexistent) {
		return err
	}

	root, err := t.load(t.superblock.RootNode)
	if err != nil {
		return err
	}
	if root.NumKeys == 0 {
		if err := t.bootstrapRoot(root, key); err != nil {
			return err
		}
	}

	if err := t.insertHelper(t.superblock.RootNode, key, value); err != nil {
		return err
	}
	return t.growRoot()
}

// bootstrapRoot handles the empty-tree case: allocate two empty leaves and
// turn the root into a one-separator interior node pointing at them.
func (t *Tree) bootstrapRoot(root *block.Node, key []byte) error {
	lhs, err := t.allocate()
	if err != nil {
		return err
	}
	rhs, err := t.allocate()
	if err != nil {
		return err
	}

	leafL := t.newNode(block.Leaf)
	leafL.RootNode = root.RootNode
	if err := t.store(lhs, leafL); err != nil {
		return err
	}
	leafR := t.newNode(block.Leaf)
	leafR.RootNode = root.RootNode
	if err := t.store(rhs, leafR); err != nil {
		return err
	}

	root.NumKeys = 1
	if err := root.SetKey(0, key); err != nil {
		return newErr("Insert", Size, err)
	}
	if err := root.SetPtr(0, lhs); err != nil {
		return newErr("Insert", Size, err)
	}
	if err := root.SetPtr(1, rhs); err != nil {
		return newErr("Insert", Size, err)
	}
	return t.store(t.superblock.RootNode, root)
}

// insertHelper descends to a leaf, inserts there, and on the way back up
// checks whether the just-visited child overflowed; if so it splits the
// child and propagates the promoted separator into the current node. The
// current node's own possible overflow is left for the caller — Insert
// checks the root explicitly via growRoot once the whole recursion unwinds.
func (t *Tree) insertHelper(index uint64, key, value []byte) error {
	n, err := t.load(index)
	if err != nil {
		return err
	}

	switch n.Kind {
	case block.Root, block.Interior:
		for offset := 0; offset < int(n.NumKeys); offset++ {
			testKey, err := n.Key(offset)
			if err != nil {
				return newErr("Insert", Size, err)
			}
			if !lessThan(testKey, key) {
				ptr, err := n.Ptr(offset)
				if err != nil {
					return newErr("Insert", Size, err)
				}
				return t.insertAndMaybeSplit(index, ptr, key, value)
			}
		}
		if n.NumKeys > 0 {
			ptr, err := n.Ptr(int(n.NumKeys))
			if err != nil {
				return newErr("Insert", Size, err)
			}
			return t.insertAndMaybeSplit(index, ptr, key, value)
		}
		return newErr("Insert", Nonexistent, nil)
	case block.Leaf:
		return t.insertKeyVal(index, key, value, 0)
	default:
		return newErr("Insert", Insane, nil)
	}
}

// insertAndMaybeSplit recurses into child, then, if child overflowed,
// splits it and inserts the promoted separator into parent.
func (t *Tree) insertAndMaybeSplit(parent, child uint64, key, value []byte) error {
	if err := t.insertHelper(child, key, value); err != nil {
		return err
	}

	childNode, err := t.load(child)
	if err != nil {
		return err
	}
	if !isFull(childNode) {
		return nil
	}

	median, newBlock, err := t.split(child)
	if err != nil {
		return err
	}
	return t.insertKeyVal(parent, median, nil, newBlock)
}
