package btree

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ephilipz/blocktree/pkg/block"
	"github.com/ephilipz/blocktree/pkg/blockio"
)

func assert(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

func newTestTree(t *testing.T, numBlocks uint64) *Tree {
	t.Helper()
	cache := blockio.NewMemCache(256, numBlocks)
	tree := New(8, 8, cache)
	if err := tree.Attach(0, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return tree
}

func key8(s string) []byte {
	b := make([]byte, 8)
	copy(b, s)
	return b
}

// S1: empty store.
func TestEmptyStore(t *testing.T) {
	tree := newTestTree(t, 100)

	_, err := tree.Lookup(key8("aaaaaaaa"))
	assert(t, Is(err, Nonexistent), "expected Nonexistent on empty store")

	if err := tree.SanityCheck(); err != nil {
		t.Fatalf("SanityCheck on empty store: %v", err)
	}
	assert(t, tree.superblock.FreeList == 2, "freelist head should start at 2")
}

// S2: first insert bootstraps the root into a one-separator interior node.
func TestFirstInsertBootstraps(t *testing.T) {
	tree := newTestTree(t, 100)

	if err := tree.Insert(key8("k0000000"), key8("v0000000")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	root, err := tree.load(tree.superblock.RootNode)
	if err != nil {
		t.Fatal(err)
	}
	assert(t, root.NumKeys == 1, "root should have one separator after bootstrap")

	v, err := tree.Lookup(key8("k0000000"))
	if err != nil {
		t.Fatalf("Lookup after bootstrap insert: %v", err)
	}
	assert(t, bytes.Equal(v, key8("v0000000")), "value mismatch after bootstrap insert")

	assert(t, tree.superblock.FreeList == 4, "freelist head should advance by two blocks")

	if err := tree.SanityCheck(); err != nil {
		t.Fatalf("SanityCheck: %v", err)
	}
}

// S3: update in place, and update of a missing key.
func TestUpdate(t *testing.T) {
	tree := newTestTree(t, 100)
	must(t, tree.Insert(key8("k"), key8("v1")))
	must(t, tree.Update(key8("k"), key8("v2")))

	v, err := tree.Lookup(key8("k"))
	if err != nil {
		t.Fatal(err)
	}
	assert(t, bytes.Equal(v, key8("v2")), "update did not take effect")

	err = tree.Update(key8("missing_"), key8("x"))
	assert(t, Is(err, Nonexistent), "update of missing key should be Nonexistent")
}

// S4: duplicate insert is rejected and leaves the existing binding intact.
func TestInsertConflict(t *testing.T) {
	tree := newTestTree(t, 100)
	must(t, tree.Insert(key8("k"), key8("v1")))

	err := tree.Insert(key8("k"), key8("v2"))
	assert(t, Is(err, Conflict), "duplicate insert should be Conflict")

	v, err := tree.Lookup(key8("k"))
	if err != nil {
		t.Fatal(err)
	}
	assert(t, bytes.Equal(v, key8("v1")), "conflicting insert must not overwrite")
}

// S5: enough ascending inserts to force a leaf split, verified via a sorted dump.
func TestLeafSplit(t *testing.T) {
	tree := newTestTree(t, 200)

	const n = 40
	for i := 0; i < n; i++ {
		must(t, tree.Insert(keyN(i), valN(i)))
	}

	if err := tree.SanityCheck(); err != nil {
		t.Fatalf("SanityCheck after leaf splits: %v", err)
	}

	var buf strings.Builder
	if err := tree.Display(&buf, SortedKeyVal); err != nil {
		t.Fatal(err)
	}

	got := dumpLines(buf.String())
	assert(t, len(got) == n, "dump should contain every inserted pair")
	for i := 1; i < len(got); i++ {
		assert(t, got[i-1] < got[i], "dump must be in strictly ascending key order")
	}

	for i := 0; i < n; i++ {
		v, err := tree.Lookup(keyN(i))
		if err != nil {
			t.Fatalf("Lookup(%d): %v", i, err)
		}
		assert(t, bytes.Equal(v, valN(i)), "value mismatch after splits")
	}
}

// TestRootGrowsOnOverflow inserts enough ascending keys to fill the root
// itself, forcing growRoot to demote the old root to an INTERIOR node and
// allocate a fresh ROOT above it.
func TestRootGrowsOnOverflow(t *testing.T) {
	tree := newTestTree(t, 4000)

	origRootIdx := tree.superblock.RootNode

	leafCap := block.LeafCapacity(256, 8, 8)
	rootCap := block.InteriorCapacity(256, 8)
	// Every leaf split pushes one separator into the root; this many
	// ascending keys fills it to rootCap separators, so it must split too.
	n := leafCap * (rootCap + 2)

	for i := 0; i < n; i++ {
		must(t, tree.Insert(keyN(i), valN(i)))
	}

	if err := tree.SanityCheck(); err != nil {
		t.Fatalf("SanityCheck after root growth: %v", err)
	}

	newRootIdx := tree.superblock.RootNode
	assert(t, newRootIdx != origRootIdx, "root index should change once the original root overflows")

	newRoot, err := tree.load(newRootIdx)
	if err != nil {
		t.Fatal(err)
	}
	assert(t, newRoot.Kind == block.Root, "block at the new root index should be kind Root")

	oldRoot, err := tree.load(origRootIdx)
	if err != nil {
		t.Fatal(err)
	}
	assert(t, oldRoot.Kind == block.Interior, "demoted old root should now be kind Interior")

	for i := 0; i < n; i++ {
		v, err := tree.Lookup(keyN(i))
		if err != nil {
			t.Fatalf("Lookup(%d) after root growth: %v", i, err)
		}
		assert(t, bytes.Equal(v, valN(i)), "value mismatch after root growth")
	}
}

// S6: a tiny store (no free blocks left beyond the bootstrap leaves) runs
// out of space the moment a leaf fills up and needs a sibling to split into.
func TestAllocationExhaustion(t *testing.T) {
	tree := newTestTree(t, 4) // blocks: 0 superblock, 1 root, 2+3 bootstrap leaves, freelist empty

	capacity := block.LeafCapacity(256, 8, 8)

	// Key 0 bootstraps into the left leaf; keys 1..capacity then fill the
	// right leaf, and the last of them forces the split.
	var last error
	for i := 0; i <= capacity; i++ {
		last = tree.Insert(keyN(i), valN(i))
		if last != nil {
			break
		}
	}
	assert(t, Is(last, NoSpace), "insert that forces a leaf split with no free blocks should be NoSpace")
}

// Free-list round trip: deallocate then allocate returns the same block and
// restores the prior freelist head.
func TestFreeListRoundTrip(t *testing.T) {
	tree := newTestTree(t, 100)
	before := tree.superblock.FreeList

	blk, err := tree.allocate()
	if err != nil {
		t.Fatal(err)
	}
	// allocate leaves the kind to its caller; stamp one as a real caller would.
	must(t, tree.store(blk, tree.newNode(block.Leaf)))
	if err := tree.deallocate(blk); err != nil {
		t.Fatal(err)
	}

	after := tree.superblock.FreeList
	assert(t, after == before, "freelist head should be restored after dealloc")

	again, err := tree.allocate()
	if err != nil {
		t.Fatal(err)
	}
	assert(t, again == blk, "allocate after dealloc should return the same block")
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func keyN(i int) []byte {
	b := make([]byte, 8)
	copy(b, []byte{'k'})
	putDecimal(b[1:], i)
	return b
}

func valN(i int) []byte {
	b := make([]byte, 8)
	copy(b, []byte{'v'})
	putDecimal(b[1:], i)
	return b
}

// putDecimal writes i, zero-padded, into dst using only ASCII digits so
// lexicographic byte order matches numeric order for i in [0, 9999999).
func putDecimal(dst []byte, i int) {
	for j := len(dst) - 1; j >= 0; j-- {
		dst[j] = byte('0' + i%10)
		i /= 10
	}
}

func dumpLines(dump string) []string {
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
