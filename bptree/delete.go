package bptree

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bptreeidx/internal/page"
)

// Delete removes key from the tree. It returns ErrKeyNotFound if key is
// absent.
func (t *Tree) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, leafID, err := t.findLeaf(key)
	if err != nil {
		return err
	}

	idx := leaf.KeyIndex(key, t.opts.Comparator)
	if idx >= leaf.Size() || t.opts.Comparator(leaf.KeyAt(idx), key) != 0 {
		t.pool.Unpin(leafID, false)
		return ErrKeyNotFound
	}
	leaf.RemoveAt(idx)
	minSize := leafMinSize(leaf.MaxSize())

	root, err := t.rootID()
	if err != nil {
		t.pool.Unpin(leafID, true)
		return err
	}

	if leafID == root {
		t.pool.Unpin(leafID, true)
		return t.adjustRoot(leafID)
	}

	if leaf.Size() >= minSize {
		t.pool.Unpin(leafID, true)
		return nil
	}
	t.pool.Unpin(leafID, true)
	return t.coalesceOrRedistributeLeaf(leafID)
}

// adjustRoot implements BusTub's AdjustRoot: the root is exempt from the
// usual min-size constraint, but if it shrinks to an internal page with
// one child, that child replaces it as the new root, and if it shrinks to
// an empty leaf, the tree becomes empty.
func (t *Tree) adjustRoot(rootID int64) error {
	pg, err := t.pool.Fetch(rootID)
	if err != nil {
		return errors.Wrapf(err, "fetch root page %d", rootID)
	}
	h := page.NewInternal(pg.Data[:]).Header
	if h.IsLeaf() {
		t.pool.Unpin(rootID, false)
		if h.Size() == 0 {
			if err := t.setRootID(page.InvalidPageID); err != nil {
				return err
			}
			return t.pool.DeletePage(rootID)
		}
		return nil
	}

	internal := page.NewInternal(pg.Data[:])
	if internal.Size() == 1 {
		childID := internal.RemoveAndReturnOnlyChild()
		t.pool.Unpin(rootID, true)
		if err := t.setParentID(childID, page.InvalidPageID); err != nil {
			return err
		}
		if err := t.setRootID(childID); err != nil {
			return err
		}
		t.log.Debug("root collapsed to child", zap.Int64("new_root_id", childID))
		return t.pool.DeletePage(rootID)
	}
	t.pool.Unpin(rootID, false)
	return nil
}

// siblingSlot returns the parent slot index for nodeID and the slot index
// of the sibling to coalesce or redistribute with: the right sibling if
// nodeID is the leftmost child, otherwise the left sibling.
func siblingSlot(parent *page.Internal, nodeID int64) (nodeIdx, siblingIdx int) {
	nodeIdx = parent.ValueIndex(nodeID)
	if nodeIdx == 0 {
		return nodeIdx, 1
	}
	return nodeIdx, nodeIdx - 1
}

func (t *Tree) coalesceOrRedistributeLeaf(leafID int64) error {
	leaf, err := t.fetchLeaf(leafID)
	if err != nil {
		return err
	}
	parentID := leaf.ParentPageID()
	parent, err := t.fetchInternal(parentID)
	if err != nil {
		t.pool.Unpin(leafID, false)
		return err
	}

	nodeIdx, siblingIdx := siblingSlot(parent, leafID)
	siblingID := parent.ValueAt(siblingIdx)
	sibling, err := t.fetchLeaf(siblingID)
	if err != nil {
		t.pool.Unpin(leafID, false)
		t.pool.Unpin(parentID, false)
		return err
	}

	rightIdx := nodeIdx
	leftID, rightID := leafID, siblingID
	left, right := leaf, sibling
	if siblingIdx < nodeIdx {
		leftID, rightID = siblingID, leafID
		left, right = sibling, leaf
	} else {
		rightIdx = siblingIdx
	}

	if left.Size()+right.Size() < left.MaxSize() {
		left.SetNextPageID(right.NextPageID())
		right.MoveAllTo(left)
		parent.Remove(rightIdx)

		t.pool.Unpin(leftID, true)
		t.pool.Unpin(rightID, true)
		if err := t.pool.DeletePage(rightID); err != nil {
			t.pool.Unpin(parentID, true)
			return err
		}
		return t.shrinkParent(parent, parentID)
	}

	if nodeIdx == 0 {
		// node is left, sibling is right: pull sibling's first entry over.
		right.MoveFirstToEndOf(left)
		parent.SetKeyAt(rightIdx, right.KeyAt(0))
	} else {
		// node is right, sibling is left: pull sibling's last entry over.
		left.MoveLastToFrontOf(right)
		parent.SetKeyAt(nodeIdx, right.KeyAt(0))
	}
	t.pool.Unpin(leafID, true)
	t.pool.Unpin(siblingID, true)
	t.pool.Unpin(parentID, true)
	return nil
}

// shrinkParent is called after a child page was deleted during a
// coalesce: the parent lost one slot, so it may itself now be
// underflowing and need to coalesce or redistribute (or, if it is the
// root, be collapsed by adjustRoot). The caller must hold exactly one pin
// on parent/parentID; shrinkParent releases it on every path.
func (t *Tree) shrinkParent(parent *page.Internal, parentID int64) error {
	root, err := t.rootID()
	if err != nil {
		t.pool.Unpin(parentID, true)
		return err
	}
	if parentID == root {
		t.pool.Unpin(parentID, true)
		return t.adjustRoot(parentID)
	}

	size := parent.Size()
	minSize := internalMinSize(parent.MaxSize())
	t.pool.Unpin(parentID, true)

	if size >= minSize {
		return nil
	}
	return t.coalesceOrRedistributeInternal(parentID)
}

func (t *Tree) coalesceOrRedistributeInternal(nodeID int64) error {
	node, err := t.fetchInternal(nodeID)
	if err != nil {
		return err
	}
	parentID := node.ParentPageID()
	parent, err := t.fetchInternal(parentID)
	if err != nil {
		t.pool.Unpin(nodeID, false)
		return err
	}

	nodeIdx, siblingIdx := siblingSlot(parent, nodeID)
	siblingID := parent.ValueAt(siblingIdx)
	sibling, err := t.fetchInternal(siblingID)
	if err != nil {
		t.pool.Unpin(nodeID, false)
		t.pool.Unpin(parentID, false)
		return err
	}

	rightIdx := nodeIdx
	leftID, rightID := nodeID, siblingID
	left, right := node, sibling
	if siblingIdx < nodeIdx {
		leftID, rightID = siblingID, nodeID
		left, right = sibling, node
	} else {
		rightIdx = siblingIdx
	}

	if left.Size()+right.Size() <= left.MaxSize() {
		middleKey := append([]byte(nil), parent.KeyAt(rightIdx)...)
		right.MoveAllTo(left, middleKey)
		if err := t.reparentChildren(left, leftID); err != nil {
			t.pool.Unpin(leftID, true)
			t.pool.Unpin(rightID, true)
			t.pool.Unpin(parentID, true)
			return err
		}
		parent.Remove(rightIdx)

		t.pool.Unpin(leftID, true)
		t.pool.Unpin(rightID, true)
		if err := t.pool.DeletePage(rightID); err != nil {
			t.pool.Unpin(parentID, true)
			return err
		}
		return t.shrinkParent(parent, parentID)
	}

	if nodeIdx == 0 {
		middleKey := append([]byte(nil), parent.KeyAt(rightIdx)...)
		right.MoveFirstToEndOf(left, middleKey)
		if err := t.setParentID(left.ValueAt(left.Size()-1), leftID); err != nil {
			t.pool.Unpin(nodeID, true)
			t.pool.Unpin(siblingID, true)
			t.pool.Unpin(parentID, true)
			return err
		}
		parent.SetKeyAt(rightIdx, right.KeyAt(0))
	} else {
		middleKey := append([]byte(nil), parent.KeyAt(nodeIdx)...)
		newSeparator := append([]byte(nil), left.KeyAt(left.Size()-1)...)
		left.MoveLastToFrontOf(right, middleKey)
		if err := t.setParentID(right.ValueAt(0), rightID); err != nil {
			t.pool.Unpin(nodeID, true)
			t.pool.Unpin(siblingID, true)
			t.pool.Unpin(parentID, true)
			return err
		}
		parent.SetKeyAt(nodeIdx, newSeparator)
	}
	t.pool.Unpin(nodeID, true)
	t.pool.Unpin(siblingID, true)
	t.pool.Unpin(parentID, true)
	return nil
}
