package bptree

import (
	"github.com/pkg/errors"

	"bptreeidx/internal/page"
)

// Iterator walks the tree's leaves in key order, following the leaf
// sibling chain rather than re-descending from the root for every step —
// the same shape as index_iterator.cpp's IndexIterator.
type Iterator struct {
	t       *Tree
	leafID  int64
	leaf    *page.Leaf
	slot    int
	atEnd   bool
	started bool
}

// NewIterator returns an iterator positioned at the first key >= from. A
// nil from starts at the smallest key in the tree.
func (t *Tree) NewIterator(from []byte) (*Iterator, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rootID, err := t.rootID()
	if err != nil {
		return nil, err
	}
	if rootID == page.InvalidPageID {
		return &Iterator{t: t, atEnd: true}, nil
	}

	var leaf *page.Leaf
	var leafID int64
	if from == nil {
		leafID = rootID
		for {
			pg, err := t.pool.Fetch(leafID)
			if err != nil {
				return nil, errors.Wrapf(err, "fetch page %d", leafID)
			}
			h := page.NewInternal(pg.Data[:]).Header
			if h.IsLeaf() {
				leaf = page.NewLeaf(pg.Data[:])
				break
			}
			internal := page.NewInternal(pg.Data[:])
			nextID := internal.ValueAt(0)
			t.pool.Unpin(leafID, false)
			leafID = nextID
		}
	} else {
		leaf, leafID, err = t.findLeaf(from)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return &Iterator{t: t, atEnd: true}, nil
			}
			return nil, err
		}
	}

	slot := 0
	if from != nil {
		slot = leaf.KeyIndex(from, t.opts.Comparator)
	}
	it := &Iterator{t: t, leafID: leafID, leaf: leaf, slot: slot, started: true}
	it.advanceToValidSlot()
	return it, nil
}

// advanceToValidSlot moves forward across leaf boundaries when slot has
// walked past the current leaf's last entry, unpinning exhausted leaves
// as it goes.
func (it *Iterator) advanceToValidSlot() {
	for it.slot >= it.leaf.Size() {
		nextID := it.leaf.NextPageID()
		it.t.pool.Unpin(it.leafID, false)
		if nextID == page.InvalidPageID {
			it.leaf = nil
			it.atEnd = true
			return
		}
		pg, err := it.t.pool.Fetch(nextID)
		if err != nil {
			it.leaf = nil
			it.atEnd = true
			return
		}
		it.leafID = nextID
		it.leaf = page.NewLeaf(pg.Data[:])
		it.slot = 0
	}
}

// Valid reports whether the iterator is positioned at a key.
func (it *Iterator) Valid() bool {
	return it.started && !it.atEnd
}

// Key and Value return the current position's key and RID. Calling them
// when !Valid() is undefined.
func (it *Iterator) Key() []byte     { return it.leaf.KeyAt(it.slot) }
func (it *Iterator) Value() page.RID { return it.leaf.ValueAt(it.slot) }

// Next advances the iterator by one entry.
func (it *Iterator) Next() {
	if it.atEnd {
		return
	}
	it.slot++
	it.advanceToValidSlot()
}

// Close releases the pin on the iterator's current leaf, if any. It must
// be called unless the iterator was already exhausted (atEnd) or never
// found a starting leaf.
func (it *Iterator) Close() {
	if it.leaf != nil && !it.atEnd {
		it.t.pool.Unpin(it.leafID, false)
		it.leaf = nil
		it.atEnd = true
	}
}
