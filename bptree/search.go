package bptree

import (
	"github.com/pkg/errors"

	"bptreeidx/internal/page"
)

// fetchLeaf fetches pageID and wraps it as a Leaf view. The underlying
// page remains pinned; callers must Unpin it.
func (t *Tree) fetchLeaf(pageID int64) (*page.Leaf, error) {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch leaf page %d", pageID)
	}
	l := page.NewLeaf(pg.Data[:])
	if l.Type() != page.TypeLeaf {
		t.pool.Unpin(pageID, false)
		return nil, errors.Wrapf(ErrMalformedPage, "page %d is not a leaf (type=%d)", pageID, l.Type())
	}
	return l, nil
}

// fetchInternal fetches pageID and wraps it as an Internal view.
func (t *Tree) fetchInternal(pageID int64) (*page.Internal, error) {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch internal page %d", pageID)
	}
	n := page.NewInternal(pg.Data[:])
	if n.Type() != page.TypeInternal {
		t.pool.Unpin(pageID, false)
		return nil, errors.Wrapf(ErrMalformedPage, "page %d is not internal (type=%d)", pageID, n.Type())
	}
	return n, nil
}

// findLeaf descends from root to the leaf that would contain key,
// unpinning every internal page along the way as soon as it has read the
// next child id. The returned leaf's page stays pinned.
func (t *Tree) findLeaf(key []byte) (*page.Leaf, int64, error) {
	rootID, err := t.rootID()
	if err != nil {
		return nil, 0, err
	}
	if rootID == page.InvalidPageID {
		return nil, 0, ErrKeyNotFound
	}

	curID := rootID
	for {
		pg, err := t.pool.Fetch(curID)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "fetch page %d", curID)
		}
		h := page.NewInternal(pg.Data[:]).Header
		if h.IsLeaf() {
			return page.NewLeaf(pg.Data[:]), curID, nil
		}
		internal := page.NewInternal(pg.Data[:])
		nextID := internal.Lookup(key, t.opts.Comparator)
		t.pool.Unpin(curID, false)
		curID = nextID
	}
}

// Get returns the RID stored for key, or ErrKeyNotFound.
func (t *Tree) Get(key []byte) (page.RID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf, leafID, err := t.findLeaf(key)
	if err != nil {
		return page.RID{}, err
	}
	defer t.pool.Unpin(leafID, false)

	rid, ok := leaf.Lookup(key, t.opts.Comparator)
	if !ok {
		return page.RID{}, ErrKeyNotFound
	}
	return rid, nil
}
