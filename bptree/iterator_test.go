package bptree

import (
	"testing"

	"bptreeidx/internal/page"
)

func TestIteratorFullScanIsSorted(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	order := []int{50, 10, 90, 30, 70, 20, 80, 40, 60}
	for _, k := range order {
		tree.Insert(testKey(k), page.RID{PageID: uint32(k)})
	}

	it, err := tree.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	defer it.Close()

	var got []int
	for it.Valid() {
		rid := it.Value()
		got = append(got, int(rid.PageID))
		it.Next()
	}

	if len(got) != len(order) {
		t.Fatalf("scanned %d entries, want %d", len(got), len(order))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("scan not sorted at index %d: %v", i, got)
		}
	}
}

func TestIteratorSeekFrom(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	for i := 0; i < 20; i++ {
		tree.Insert(testKey(i), page.RID{PageID: uint32(i)})
	}

	it, err := tree.NewIterator(testKey(10))
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	defer it.Close()

	if !it.Valid() {
		t.Fatalf("iterator seeked to 10 is not valid")
	}
	if it.Value().PageID != 10 {
		t.Fatalf("first value after seek(10) = %d, want 10", it.Value().PageID)
	}
}

func TestIteratorEmptyTree(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	it, err := tree.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	defer it.Close()
	if it.Valid() {
		t.Fatalf("iterator over empty tree is valid")
	}
}
