package btree

import (
	"bytes"

	"github.com/ephilipz/blocktree/pkg/block"
)

// descendToLeaf walks from node index following spec §4.4's rule: scan
// separators left to right, the first index i with key <= separator_i
// selects child i; if none matches, the last child is selected. It returns
// the leaf block index the key would live in, or Nonexistent if descent
// reaches an interior node with no keys at all (empty-tree case).
func (t *Tree) descendToLeaf(index uint64, key []byte) (uint64, error) {
	n, err := t.load(index)
	if err != nil {
		return 0, err
	}

	switch n.Kind {
	case block.Root, block.Interior:
		if n.NumKeys == 0 {
			return 0, newErr("descend", Nonexistent, nil)
		}
		for i := 0; i < int(n.NumKeys); i++ {
			sep, err := n.Key(i)
			if err != nil {
				return 0, newErr("descend", Size, err)
			}
			if bytes.Compare(key, sep) <= 0 {
				ptr, err := n.Ptr(i)
				if err != nil {
					return 0, newErr("descend", Size, err)
				}
				return t.descendToLeaf(ptr, key)
			}
		}
		ptr, err := n.Ptr(int(n.NumKeys))
		if err != nil {
			return 0, newErr("descend", Size, err)
		}
		return t.descendToLeaf(ptr, key)
	case block.Leaf:
		return index, nil
	default:
		return 0, newErr("descend", Insane, nil)
	}
}

func findInLeaf(n *block.Node, key []byte) (int, bool, error) {
	for i := 0; i < int(n.NumKeys); i++ {
		k, err := n.Key(i)
		if err != nil {
			return 0, false, newErr("find", Size, err)
		}
		if bytes.Equal(k, key) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// Lookup returns the value bound to key, or a Nonexistent error if key was
// never inserted.
func (t *Tree) Lookup(key []byte) ([]byte, error) {
	if err := t.checkKeySize(key); err != nil {
		return nil, err
	}
	leafIdx, err := t.descendToLeaf(t.superblock.RootNode, key)
	if err != nil {
		return nil, err
	}
	leaf, err := t.load(leafIdx)
	if err != nil {
		return nil, err
	}
	i, found, err := findInLeaf(leaf, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newErr("Lookup", Nonexistent, nil)
	}
	return leaf.Val(i)
}

// Update overwrites the value bound to an existing key. It never inserts:
// a missing key returns Nonexistent.
func (t *Tree) Update(key, value []byte) error {
	if err := t.checkKeySize(key); err != nil {
		return err
	}
	if err := t.checkValueSize(value); err != nil {
		return err
	}
	leafIdx, err := t.descendToLeaf(t.superblock.RootNode, key)
	if err != nil {
		return err
	}
	leaf, err := t.load(leafIdx)
	if err != nil {
		return err
	}
	i, found, err := findInLeaf(leaf, key)
	if err != nil {
		return err
	}
	if !found {
		return newErr("Update", Nonexistent, nil)
	}
	if err := leaf.SetVal(i, value); err != nil {
		return newErr("Update", Size, err)
	}
	return t.store(leafIdx, leaf)
}

func (t *Tree) checkKeySize(key []byte) error {
	if len(key) != t.keySize {
		return newErr("checkKeySize", Size, nil)
	}
	return nil
}

func (t *Tree) checkValueSize(value []byte) error {
	if len(value) != t.valueSize {
		return newErr("checkValueSize", Size, nil)
	}
	return nil
}
