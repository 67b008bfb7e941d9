package block

import (
	"bytes"
	"testing"
)

func assertNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestLeafSlots(t *testing.T) {
	n := New(Leaf, 4, 4, 256)
	n.NumKeys = 3

	for i := 0; i < 3; i++ {
		key := []byte{byte(i), byte(i), byte(i), byte(i)}
		val := []byte{byte(i + 1), 0, 0, 0}
		assertNil(t, n.SetKey(i, key))
		assertNil(t, n.SetVal(i, val))
	}

	for i := 0; i < 3; i++ {
		k, err := n.Key(i)
		assertNil(t, err)
		if !bytes.Equal(k, []byte{byte(i), byte(i), byte(i), byte(i)}) {
			t.Fatalf("key %d mismatch: %x", i, k)
		}
		v, err := n.Val(i)
		assertNil(t, err)
		if !bytes.Equal(v, []byte{byte(i + 1), 0, 0, 0}) {
			t.Fatalf("val %d mismatch: %x", i, v)
		}
	}

	if _, err := n.Key(3); err == nil {
		t.Fatal("expected out-of-range error for Key(3)")
	}
}

func TestInteriorSlots(t *testing.T) {
	n := New(Interior, 4, 4, 256)
	n.NumKeys = 2

	assertNil(t, n.SetPtr(0, 10))
	assertNil(t, n.SetPtr(1, 20))
	assertNil(t, n.SetPtr(2, 30))
	assertNil(t, n.SetKey(0, []byte{1, 0, 0, 0}))
	assertNil(t, n.SetKey(1, []byte{2, 0, 0, 0}))

	for i, want := range []uint64{10, 20, 30} {
		got, err := n.Ptr(i)
		assertNil(t, err)
		if got != want {
			t.Fatalf("ptr %d = %d, want %d", i, got, want)
		}
	}

	if _, err := n.Ptr(3); err == nil {
		t.Fatal("expected out-of-range error for Ptr(3)")
	}
}

func TestCapacity(t *testing.T) {
	leaf := New(Leaf, 8, 8, 256)
	if leaf.Capacity() != LeafCapacity(256, 8, 8) {
		t.Fatalf("leaf capacity mismatch")
	}
	interior := New(Interior, 8, 8, 256)
	if interior.Capacity() != InteriorCapacity(256, 8) {
		t.Fatalf("interior capacity mismatch")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	n := New(Root, 8, 8, 256)
	n.RootNode = 42
	n.FreeList = 7
	n.NumKeys = 5

	data := n.Bytes()
	got := fromBytes(data)

	if got.Kind != Root || got.RootNode != 42 || got.FreeList != 7 || got.NumKeys != 5 {
		t.Fatalf("header round trip mismatch: %+v", got.Header)
	}
	if int(got.KeySize) != 8 || int(got.ValueSize) != 8 || int(got.BlockSize) != 256 {
		t.Fatalf("size fields lost across round trip: %+v", got.Header)
	}
}
