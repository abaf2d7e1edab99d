package page

import "encoding/binary"

// Internal is a typed view over a page holding separator keys and child
// page ids. Slot 0's key is a dummy (never compared, never set by
// callers) — only its child id is meaningful, per the B+tree convention
// that an internal node has one more child than separator key.
type Internal struct {
	Header
	buf []byte
}

// NewInternal wraps data (a Page's Data slice) as an Internal view.
func NewInternal(data []byte) *Internal {
	return &Internal{Header: newHeader(data), buf: data}
}

func (n *Internal) slotWidth() int { return n.KeySize() + RIDSize }
func (n *Internal) slotOffset(i int) int {
	return HeaderLen + i*n.slotWidth()
}

// Capacity reports how many (key, child-id) slots fit in the page.
func (n *Internal) Capacity() int {
	return (Size - HeaderLen) / n.slotWidth()
}

// InitInternal zeroes the page and sets up a fresh, empty internal node.
func InitInternal(data []byte, pageID, parentID int64, maxSize, keySize int) *Internal {
	for i := range data {
		data[i] = 0
	}
	n := NewInternal(data)
	n.SetType(TypeInternal)
	n.SetSize(0)
	n.SetMaxSize(maxSize)
	n.SetKeySize(keySize)
	n.SetPageID(pageID)
	n.SetParentPageID(parentID)
	return n
}

// KeyAt returns slot i's key bytes. Slot 0's key is meaningless.
func (n *Internal) KeyAt(i int) []byte {
	off := n.slotOffset(i)
	return n.buf[off : off+n.KeySize()]
}

// SetKeyAt overwrites slot i's key bytes.
func (n *Internal) SetKeyAt(i int, key []byte) {
	off := n.slotOffset(i)
	copy(n.buf[off:off+n.KeySize()], key)
}

// ValueAt returns the child page id stored at slot i.
func (n *Internal) ValueAt(i int) int64 {
	off := n.slotOffset(i) + n.KeySize()
	return int64(binary.LittleEndian.Uint64(n.buf[off : off+8]))
}

// SetValueAt overwrites the child page id at slot i.
func (n *Internal) SetValueAt(i int, childID int64) {
	off := n.slotOffset(i) + n.KeySize()
	binary.LittleEndian.PutUint64(n.buf[off:off+8], uint64(childID))
}

func (n *Internal) setSlot(i int, key []byte, childID int64) {
	n.SetKeyAt(i, key)
	n.SetValueAt(i, childID)
}

// ValueIndex returns the slot index holding childID, or -1.
func (n *Internal) ValueIndex(childID int64) int {
	for i := 0; i < n.Size(); i++ {
		if n.ValueAt(i) == childID {
			return i
		}
	}
	return -1
}

// Lookup returns the child page id to descend into for key: the child at
// the last slot whose key is <= key (slot 0's dummy key always compares
// as the lower bound).
func (n *Internal) Lookup(key []byte, cmp func(a, b []byte) int) int64 {
	size := n.Size()
	lo, hi := 1, size
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return n.ValueAt(lo - 1)
}

// PopulateNewRoot sets up a brand-new root with exactly two children: the
// page that split (oldChildID) and the page produced by the split
// (newChildID), separated by newKey.
func (n *Internal) PopulateNewRoot(oldChildID int64, newKey []byte, newChildID int64) {
	n.SetValueAt(0, oldChildID)
	n.setSlot(1, newKey, newChildID)
	n.SetSize(2)
}

// InsertNodeAfter inserts (newKey, newChildID) immediately after the slot
// holding oldChildID, and returns the new size.
func (n *Internal) InsertNodeAfter(oldChildID int64, newKey []byte, newChildID int64) int {
	i := n.ValueIndex(oldChildID)
	size := n.Size()
	for j := size; j > i+1; j-- {
		n.setSlot(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.setSlot(i+1, newKey, newChildID)
	n.SetSize(size + 1)
	return size + 1
}

// Remove deletes the slot at index i.
func (n *Internal) Remove(i int) {
	size := n.Size()
	for j := i; j < size-1; j++ {
		n.setSlot(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.SetSize(size - 1)
}

// RemoveAndReturnOnlyChild empties a node down to zero slots and returns
// the single remaining child id, used when the root shrinks to one child
// and must be replaced by that child (AdjustRoot case 2).
func (n *Internal) RemoveAndReturnOnlyChild() int64 {
	child := n.ValueAt(0)
	n.SetSize(0)
	return child
}

// MoveHalfTo moves the upper half of n's slots to dst, which must be
// empty. Used by split. Caller is responsible for re-parenting every
// moved child through the buffer pool.
func (n *Internal) MoveHalfTo(dst *Internal) {
	size := n.Size()
	mid := size / 2
	for i := mid; i < size; i++ {
		dst.setSlot(i-mid, n.KeyAt(i), n.ValueAt(i))
	}
	dst.SetSize(size - mid)
	n.SetSize(mid)
}

// MoveAllTo appends all of n's slots onto the end of dst, with middleKey
// (the parent's separator key for n) as the key of n's first moved slot,
// used when coalescing two internal nodes.
func (n *Internal) MoveAllTo(dst *Internal, middleKey []byte) {
	dSize := dst.Size()
	size := n.Size()
	dst.setSlot(dSize, middleKey, n.ValueAt(0))
	for i := 1; i < size; i++ {
		dst.setSlot(dSize+i, n.KeyAt(i), n.ValueAt(i))
	}
	dst.SetSize(dSize + size)
	n.SetSize(0)
}

// MoveFirstToEndOf moves n's first child (under middleKey, its parent's
// separator for n) to the end of dst.
func (n *Internal) MoveFirstToEndOf(dst *Internal, middleKey []byte) {
	dSize := dst.Size()
	dst.setSlot(dSize, middleKey, n.ValueAt(0))
	dst.SetSize(dSize + 1)
	n.Remove(0)
}

// MoveLastToFrontOf moves n's last child to the front of dst under
// middleKey (dst's parent's separator for dst, about to become the key
// above n's former last child).
func (n *Internal) MoveLastToFrontOf(dst *Internal, middleKey []byte) {
	size := n.Size()
	last := size - 1
	lastChild := n.ValueAt(last)
	dSize := dst.Size()
	for j := dSize; j > 0; j-- {
		dst.setSlot(j, dst.KeyAt(j-1), dst.ValueAt(j-1))
	}
	dst.setSlot(0, dst.KeyAt(0), lastChild)
	dst.SetKeyAt(1, middleKey)
	dst.SetSize(dSize + 1)
	n.SetSize(last)
}
