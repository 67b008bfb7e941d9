package btree

import "github.com/ephilipz/blocktree/pkg/block"

// allocate pops one block off the free list, per spec §4.2: read the head,
// assert it is UNALLOCATED, thread the superblock's freelist to the
// consumed block's successor, and persist the superblock before returning
// the block to the caller — bounding a crash's leak window to one block and
// never permitting a double allocation.
func (t *Tree) allocate() (uint64, error) {
	head := t.superblock.FreeList
	if head == 0 {
		return 0, newErr("allocate", NoSpace, nil)
	}

	n, err := t.load(head)
	if err != nil {
		return 0, err
	}
	if n.Kind != block.Unallocated {
		return 0, newErr("allocate", Insane, nil)
	}

	t.superblock.FreeList = n.FreeList
	if err := t.store(superblockIndex, t.superblock); err != nil {
		return 0, err
	}

	t.cache.NotifyAllocate(head)
	t.log.Debug("allocated block %d, freelist now %d", head, t.superblock.FreeList)
	return head, nil
}

// deallocate pushes block n back onto the free-list head, per spec §4.2.
func (t *Tree) deallocate(n uint64) error {
	node, err := t.load(n)
	if err != nil {
		return err
	}
	if node.Kind == block.Unallocated {
		return newErr("deallocate", Insane, nil)
	}

	node.Kind = block.Unallocated
	node.FreeList = t.superblock.FreeList
	node.NumKeys = 0
	if err := t.store(n, node); err != nil {
		return err
	}

	t.superblock.FreeList = n
	if err := t.store(superblockIndex, t.superblock); err != nil {
		return err
	}

	t.cache.NotifyDeallocate(n)
	t.log.Debug("deallocated block %d, freelist now %d", n, t.superblock.FreeList)
	return nil
}
