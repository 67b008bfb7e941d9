package btree

import "github.com/ephilipz/blocktree/pkg/block"

// isFull reports whether n needs splitting: numkeys >= capacity. (Spec's
// alternate "2/3 full" test truncates to zero under integer arithmetic and
// never fires; this is the corrected test — see SPEC_FULL.md §1.)
func isFull(n *block.Node) bool {
	return int(n.NumKeys) >= n.Capacity()
}

// splitLeaf splits a full leaf node in place: n keeps entries [0, m), r
// receives [m, numkeys) copied left-to-right into the newly allocated
// block. m = (numkeys+2)/2 so both halves round the same way for even and
// odd counts. The median (n.key[m-1]) is promoted to the caller but is not
// duplicated into r.
func splitLeaf(n, r *block.Node) ([]byte, error) {
	numkeys := int(n.NumKeys)
	m := (numkeys + 2) / 2

	median, err := n.Key(m - 1)
	if err != nil {
		return nil, err
	}

	r.NumKeys = uint16(numkeys - m)
	for i := m; i < numkeys; i++ {
		k, err := n.Key(i)
		if err != nil {
			return nil, err
		}
		v, err := n.Val(i)
		if err != nil {
			return nil, err
		}
		j := i - m
		if err := r.SetKey(j, k); err != nil {
			return nil, err
		}
		if err := r.SetVal(j, v); err != nil {
			return nil, err
		}
	}
	n.NumKeys = uint16(m)
	return median, nil
}

// splitInterior splits a full interior (or root-acting-as-interior) node:
// n keeps keys [0,m) and pointers [0,m]; r receives keys [m+1,numkeys) and
// pointers [m+1,numkeys], a standard B-tree interior split. The median
// key[m] is promoted and appears in neither half.
func splitInterior(n, r *block.Node) ([]byte, error) {
	numkeys := int(n.NumKeys)
	m := numkeys / 2

	median, err := n.Key(m)
	if err != nil {
		return nil, err
	}

	r.NumKeys = uint16(numkeys - m - 1)
	for i := m + 1; i <= numkeys; i++ {
		p, err := n.Ptr(i)
		if err != nil {
			return nil, err
		}
		if err := r.SetPtr(i-m-1, p); err != nil {
			return nil, err
		}
		if i < numkeys {
			k, err := n.Key(i)
			if err != nil {
				return nil, err
			}
			if err := r.SetKey(i-m-1, k); err != nil {
				return nil, err
			}
		}
	}
	n.NumKeys = uint16(m)
	return median, nil
}

// split allocates a fresh block, splits the node at index into it (per
// spec §4.4's leaf/interior formulas), persists both halves — the new right
// half first, so a crash right after leaves the left half's old, still
// internally-consistent bytes on disk and only orphans the freshly
// allocated sibling — and reports the promoted median and the new block's
// index for the caller to insert into the parent.
func (t *Tree) split(index uint64) ([]byte, uint64, error) {
	n, err := t.load(index)
	if err != nil {
		return nil, 0, err
	}

	rightIdx, err := t.allocate()
	if err != nil {
		return nil, 0, err
	}
	r := t.newNode(n.Kind)
	r.RootNode = n.RootNode

	var median []byte
	switch n.Kind {
	case block.Leaf:
		median, err = splitLeaf(n, r)
	case block.Root, block.Interior:
		median, err = splitInterior(n, r)
	default:
		return nil, 0, newErr("split", Insane, nil)
	}
	if err != nil {
		return nil, 0, err
	}

	if err := t.store(rightIdx, r); err != nil {
		return nil, 0, err
	}
	if err := t.store(index, n); err != nil {
		return nil, 0, err
	}

	t.log.Debug("split block %d -> %d, %d keys / %d keys", index, rightIdx, n.NumKeys, r.NumKeys)
	return median, rightIdx, nil
}

// insertKeyVal inserts one (key, value|rightChild) slot into node at index,
// which the caller guarantees is not already full. It finds the first
// index i with key < node.key[i] (numkeys if none), shifts the suffix one
// slot right, and writes the new entry at i.
func (t *Tree) insertKeyVal(index uint64, key, value []byte, rightChild uint64) error {
	n, err := t.load(index)
	if err != nil {
		return err
	}
	if isFull(n) {
		return newErr("insertKeyVal", NoSpace, nil)
	}

	numkeys := int(n.NumKeys)
	i := numkeys
	for j := 0; j < numkeys; j++ {
		k, err := n.Key(j)
		if err != nil {
			return newErr("insertKeyVal", Size, err)
		}
		if lessThan(key, k) {
			i = j
			break
		}
	}

	shiftSuffixRight(n, i) // also bumps n.NumKeys so slot i is addressable

	if err := n.SetKey(i, key); err != nil {
		return newErr("insertKeyVal", Size, err)
	}
	switch n.Kind {
	case block.Leaf:
		if err := n.SetVal(i, value); err != nil {
			return newErr("insertKeyVal", Size, err)
		}
	case block.Root, block.Interior:
		if err := n.SetPtr(i+1, rightChild); err != nil {
			return newErr("insertKeyVal", Size, err)
		}
	default:
		return newErr("insertKeyVal", Insane, nil)
	}

	return t.store(index, n)
}

// shiftSuffixRight moves the suffix starting at slot i one slot to the
// right, growing numkeys by one first so the destination slots are
// addressable, then raw-copying the byte region — the contiguous move
// spec §4.4 describes.
func shiftSuffixRight(n *block.Node, i int) {
	count := int(n.NumKeys) - i
	if count <= 0 {
		n.NumKeys++
		return
	}

	n.NumKeys++ // widen the addressable region before touching raw bytes
	data := n.Bytes()

	switch n.Kind {
	case block.Leaf:
		src := n.KeyOffset(i)
		length := count * (int(n.KeySize) + int(n.ValueSize))
		dst := n.KeyOffset(i + 1)
		shiftBytes(data, src, dst, length)
	case block.Root, block.Interior:
		src := n.KeyOffset(i)
		length := count * (int(n.KeySize) + block.PtrSize)
		dst := n.KeyOffset(i + 1)
		shiftBytes(data, src, dst, length)
	}
}

func shiftBytes(data []byte, src, dst, length int) {
	if length <= 0 {
		return
	}
	buf := make([]byte, length)
	copy(buf, data[src:src+length])
	copy(data[dst:dst+length], buf)
}

func lessThan(a, b []byte) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// growRoot handles the open question the reference leaves incomplete: when
// the root itself is full after a separator has been pushed into it, the
// tree must grow a level. The old root is demoted to an ordinary INTERIOR
// node, split as such, and a brand new ROOT block is allocated to hold the
// single promoted separator and the two demoted halves as children.
func (t *Tree) growRoot() error {
	oldIdx := t.superblock.RootNode
	old, err := t.load(oldIdx)
	if err != nil {
		return err
	}
	if !isFull(old) {
		return nil
	}

	old.Kind = block.Interior
	rightIdx, err := t.allocate()
	if err != nil {
		return err
	}
	right := t.newNode(block.Interior)
	right.RootNode = old.RootNode

	median, err := splitInterior(old, right)
	if err != nil {
		return err
	}
	if err := t.store(rightIdx, right); err != nil {
		return err
	}
	if err := t.store(oldIdx, old); err != nil {
		return err
	}

	newRootIdx, err := t.allocate()
	if err != nil {
		return err
	}
	newRoot := t.newNode(block.Root)
	newRoot.RootNode = newRootIdx
	newRoot.NumKeys = 1
	if err := newRoot.SetKey(0, median); err != nil {
		return newErr("growRoot", Size, err)
	}
	if err := newRoot.SetPtr(0, oldIdx); err != nil {
		return newErr("growRoot", Size, err)
	}
	if err := newRoot.SetPtr(1, rightIdx); err != nil {
		return newErr("growRoot", Size, err)
	}
	if err := t.store(newRootIdx, newRoot); err != nil {
		return err
	}

	t.superblock.RootNode = newRootIdx
	t.log.Info("grew tree: new root %d, old root %d demoted, sibling %d", newRootIdx, oldIdx, rightIdx)
	return t.store(superblockIndex, t.superblock)
}
