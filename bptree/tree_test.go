package bptree

import (
	"encoding/binary"
	"testing"

	"bptreeidx/internal/diskmgr"
	"bptreeidx/internal/page"
)

func testKey(n int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func openTestTree(t *testing.T, leafMax, internalMax int) *Tree {
	t.Helper()
	tree, err := Open(diskmgr.NewMemory(), Options{
		IndexName:       "test",
		KeySize:         8,
		LeafMaxSize:     leafMax,
		InternalMaxSize: internalMax,
		PoolSize:        64,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tree
}

func TestInsertGetSingle(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	if err := tree.Insert(testKey(1), page.RID{PageID: 1, Slot: 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	rid, err := tree.Get(testKey(1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rid.PageID != 1 {
		t.Fatalf("Get returned %+v, want PageID 1", rid)
	}
}

func TestGetMissing(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	if _, err := tree.Get(testKey(42)); err != ErrKeyNotFound {
		t.Fatalf("Get(missing) = %v, want ErrKeyNotFound", err)
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	if err := tree.Insert(testKey(1), page.RID{PageID: 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Insert(testKey(1), page.RID{PageID: 2}); err != ErrDuplicateKey {
		t.Fatalf("Insert(dup) = %v, want ErrDuplicateKey", err)
	}
}

// TestInsertManyTriggersSplits exercises leaf and internal splits using
// leaf_max_size = internal_max_size = 4, the scenario spec.md's testable
// properties are built around.
func TestInsertManyTriggersSplits(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	const n = 200
	for i := 0; i < n; i++ {
		if err := tree.Insert(testKey(i), page.RID{PageID: uint32(i)}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		rid, err := tree.Get(testKey(i))
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if rid.PageID != uint32(i) {
			t.Fatalf("Get(%d) = %+v, want PageID %d", i, rid, i)
		}
	}
}

func TestInsertOutOfOrder(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	order := []int{50, 10, 90, 30, 70, 20, 80, 40, 60, 0, 100}
	for _, k := range order {
		if err := tree.Insert(testKey(k), page.RID{PageID: uint32(k)}); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	for _, k := range order {
		if _, err := tree.Get(testKey(k)); err != nil {
			t.Fatalf("Get(%d): %v", k, err)
		}
	}
}

func TestDeleteThenGetMissing(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	tree.Insert(testKey(1), page.RID{PageID: 1})
	if err := tree.Delete(testKey(1)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tree.Get(testKey(1)); err != ErrKeyNotFound {
		t.Fatalf("Get after delete = %v, want ErrKeyNotFound", err)
	}
}

func TestDeleteMissingKey(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	tree.Insert(testKey(1), page.RID{PageID: 1})
	if err := tree.Delete(testKey(99)); err != ErrKeyNotFound {
		t.Fatalf("Delete(missing) = %v, want ErrKeyNotFound", err)
	}
}

// TestInsertDeleteManyRetainsRemainder inserts a large key set, deletes
// every other key (forcing leaf and internal underflow handling through
// redistribution and coalescing), and checks that the surviving keys are
// all still reachable and the removed ones are gone.
func TestInsertDeleteManyRetainsRemainder(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	const n = 300
	for i := 0; i < n; i++ {
		if err := tree.Insert(testKey(i), page.RID{PageID: uint32(i)}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i += 2 {
		if err := tree.Delete(testKey(i)); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		rid, err := tree.Get(testKey(i))
		if i%2 == 0 {
			if err != ErrKeyNotFound {
				t.Fatalf("Get(%d) after delete = %v, want ErrKeyNotFound", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if rid.PageID != uint32(i) {
			t.Fatalf("Get(%d) = %+v, want PageID %d", i, rid, i)
		}
	}
}

// TestDeleteDownToEmpty removes every key that was inserted and confirms
// the tree reports itself empty again (adjustRoot's leaf-shrinks-to-zero
// case).
func TestDeleteDownToEmpty(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	const n = 50
	for i := 0; i < n; i++ {
		tree.Insert(testKey(i), page.RID{PageID: uint32(i)})
	}
	for i := 0; i < n; i++ {
		if err := tree.Delete(testKey(i)); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}
	empty, err := tree.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatalf("IsEmpty() = false after deleting every key")
	}
}

func TestOptionsRejectOversizedMaxSize(t *testing.T) {
	_, err := Open(diskmgr.NewMemory(), Options{
		IndexName:       "oversized",
		KeySize:         8,
		LeafMaxSize:     1 << 20,
		InternalMaxSize: 4,
	})
	if err == nil {
		t.Fatalf("Open with an oversized LeafMaxSize did not error")
	}
}
