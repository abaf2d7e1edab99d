package bptree

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bptreeidx/internal/page"
)

// Insert adds (key, rid) to the tree. It returns ErrDuplicateKey if key
// is already present — this module has no support for duplicate keys
// (spec.md non-goal).
func (t *Tree) Insert(key []byte, rid page.RID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rootID, err := t.rootID()
	if err != nil {
		return err
	}
	if rootID == page.InvalidPageID {
		return t.startNewTree(key, rid)
	}
	return t.insertIntoLeaf(key, rid)
}

func (t *Tree) startNewTree(key []byte, rid page.RID) error {
	pg, id, err := t.pool.NewPage()
	if err != nil {
		return errors.Wrap(err, "allocate root leaf page")
	}
	leaf := page.InitLeaf(pg.Data[:], id, page.InvalidPageID, t.opts.LeafMaxSize, t.opts.KeySize)
	leaf.Insert(key, rid, t.opts.Comparator)
	t.pool.Unpin(id, true)

	if err := t.setRootID(id); err != nil {
		return err
	}
	t.log.Debug("started new tree", zap.Int64("root_id", id))
	return nil
}

func (t *Tree) insertIntoLeaf(key []byte, rid page.RID) error {
	leaf, leafID, err := t.findLeaf(key)
	if err != nil {
		return err
	}

	if _, exists := leaf.Lookup(key, t.opts.Comparator); exists {
		t.pool.Unpin(leafID, false)
		return ErrDuplicateKey
	}

	newSize := leaf.Insert(key, rid, t.opts.Comparator)
	if newSize < leaf.MaxSize() {
		t.pool.Unpin(leafID, true)
		return nil
	}

	// Overfull: split and promote the new leaf's first key to the parent.
	newLeafID, err := t.splitLeaf(leaf, leafID)
	if err != nil {
		t.pool.Unpin(leafID, true)
		return err
	}

	newLeaf, err := t.fetchLeaf(newLeafID)
	if err != nil {
		t.pool.Unpin(leafID, true)
		return err
	}
	middleKey := append([]byte(nil), newLeaf.KeyAt(0)...)
	t.pool.Unpin(newLeafID, false)

	t.pool.Unpin(leafID, true)
	return t.insertIntoParent(leafID, middleKey, newLeafID)
}

// splitLeaf allocates a fresh leaf, moves the upper half of leaf's
// entries into it, and relinks the sibling chain. leaf/leafID remain
// pinned by the caller throughout; the new leaf is unpinned here.
func (t *Tree) splitLeaf(leaf *page.Leaf, leafID int64) (int64, error) {
	pg, newID, err := t.pool.NewPage()
	if err != nil {
		return 0, errors.Wrap(err, "allocate split leaf page")
	}
	newLeaf := page.InitLeaf(pg.Data[:], newID, leaf.ParentPageID(), t.opts.LeafMaxSize, t.opts.KeySize)

	leaf.MoveHalfTo(newLeaf)
	newLeaf.SetNextPageID(leaf.NextPageID())
	leaf.SetNextPageID(newID)

	t.pool.Unpin(newID, true)
	return newID, nil
}

// insertIntoParent attaches newID (separated by key) as oldID's new right
// sibling in their shared parent, creating a new root if oldID had none,
// and recursively splitting the parent if it overflows.
func (t *Tree) insertIntoParent(oldID int64, key []byte, newID int64) error {
	oldParentID, err := t.pageParentID(oldID)
	if err != nil {
		return err
	}

	if oldParentID == page.InvalidPageID {
		return t.createNewRoot(oldID, key, newID)
	}

	parent, err := t.fetchInternal(oldParentID)
	if err != nil {
		return err
	}

	newSize := parent.InsertNodeAfter(oldID, key, newID)
	if err := t.setParentID(newID, oldParentID); err != nil {
		t.pool.Unpin(oldParentID, true)
		return err
	}

	if newSize <= parent.MaxSize() {
		t.pool.Unpin(oldParentID, true)
		return nil
	}

	newParentID, middleKey, err := t.splitInternal(parent, oldParentID)
	if err != nil {
		t.pool.Unpin(oldParentID, true)
		return err
	}
	t.pool.Unpin(oldParentID, true)
	return t.insertIntoParent(oldParentID, middleKey, newParentID)
}

func (t *Tree) createNewRoot(oldID int64, key []byte, newID int64) error {
	pg, rootID, err := t.pool.NewPage()
	if err != nil {
		return errors.Wrap(err, "allocate new root page")
	}
	root := page.InitInternal(pg.Data[:], rootID, page.InvalidPageID, t.opts.InternalMaxSize, t.opts.KeySize)
	root.PopulateNewRoot(oldID, key, newID)
	t.pool.Unpin(rootID, true)

	if err := t.setParentID(oldID, rootID); err != nil {
		return err
	}
	if err := t.setParentID(newID, rootID); err != nil {
		return err
	}
	t.log.Debug("created new root", zap.Int64("root_id", rootID))
	return t.setRootID(rootID)
}

// splitInternal allocates a fresh internal page, moves the upper half of
// n's slots into it, re-parents every moved child, and returns the new
// page's id plus the separator key to promote to the grandparent.
func (t *Tree) splitInternal(n *page.Internal, nID int64) (int64, []byte, error) {
	pg, newID, err := t.pool.NewPage()
	if err != nil {
		return 0, nil, errors.Wrap(err, "allocate split internal page")
	}
	newNode := page.InitInternal(pg.Data[:], newID, n.ParentPageID(), t.opts.InternalMaxSize, t.opts.KeySize)

	n.MoveHalfTo(newNode)
	middleKey := append([]byte(nil), newNode.KeyAt(0)...)

	if err := t.reparentChildren(newNode, newID); err != nil {
		t.pool.Unpin(newID, true)
		return 0, nil, err
	}

	t.pool.Unpin(newID, true)
	return newID, middleKey, nil
}

// reparentChildren walks every child currently in n and updates its
// stored parent page id to newParentID — the "adoption rule" spec.md §4.4
// requires whenever a child changes which internal page owns it.
func (t *Tree) reparentChildren(n *page.Internal, newParentID int64) error {
	for i := 0; i < n.Size(); i++ {
		childID := n.ValueAt(i)
		if err := t.setParentID(childID, newParentID); err != nil {
			return err
		}
	}
	return nil
}

// pageParentID and setParentID fetch just enough of a page (its common
// header) to read or write its parent pointer, through the buffer pool
// like every other page access.
func (t *Tree) pageParentID(pageID int64) (int64, error) {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return 0, errors.Wrapf(err, "fetch page %d", pageID)
	}
	id := page.NewInternal(pg.Data[:]).ParentPageID()
	t.pool.Unpin(pageID, false)
	return id, nil
}

func (t *Tree) setParentID(pageID, parentID int64) error {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return errors.Wrapf(err, "fetch page %d", pageID)
	}
	page.NewInternal(pg.Data[:]).SetParentPageID(parentID)
	t.pool.Unpin(pageID, true)
	return nil
}
