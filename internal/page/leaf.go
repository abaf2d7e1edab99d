package page

import "encoding/binary"

// Leaf is a typed view over a page holding sorted (key, RID) pairs plus a
// forward link to the next leaf. Every accessor reads or writes directly
// through the underlying Page.Data; there is no decode/encode step.
type Leaf struct {
	Header
	buf []byte
}

// RID is the fixed-width record identifier a leaf slot stores. Its
// internal shape is this module's own choice (spec.md leaves the RID
// payload format to an external collaborator); it is only ever compared
// for equality and moved around as 8 opaque bytes by the tree.
type RID struct {
	PageID uint32
	Slot   uint32
}

// MarshalBinary encodes r as 8 little-endian bytes.
func (r RID) MarshalBinary() []byte {
	b := make([]byte, RIDSize)
	binary.LittleEndian.PutUint32(b[0:], r.PageID)
	binary.LittleEndian.PutUint32(b[4:], r.Slot)
	return b
}

// UnmarshalRID decodes 8 bytes produced by MarshalBinary.
func UnmarshalRID(b []byte) RID {
	return RID{
		PageID: binary.LittleEndian.Uint32(b[0:]),
		Slot:   binary.LittleEndian.Uint32(b[4:]),
	}
}

// NewLeaf wraps data (a Page's Data slice) as a Leaf view.
func NewLeaf(data []byte) *Leaf {
	return &Leaf{Header: newHeader(data), buf: data}
}

func (l *Leaf) slotWidth() int { return l.KeySize() + RIDSize }
func (l *Leaf) slotOffset(i int) int {
	return HeaderLen + i*l.slotWidth()
}

// Capacity reports how many (key, RID) slots fit in the page for the
// configured key size, independent of the logical MaxSize the tree is
// configured with (MaxSize must never exceed this).
func (l *Leaf) Capacity() int {
	return (Size - HeaderLen) / l.slotWidth()
}

// InitLeaf zeroes the page and sets up a fresh, empty leaf.
func InitLeaf(data []byte, pageID, parentID int64, maxSize, keySize int) *Leaf {
	for i := range data {
		data[i] = 0
	}
	l := NewLeaf(data)
	l.SetType(TypeLeaf)
	l.SetSize(0)
	l.SetMaxSize(maxSize)
	l.SetKeySize(keySize)
	l.SetPageID(pageID)
	l.SetParentPageID(parentID)
	l.SetNextPageID(InvalidPageID)
	return l
}

// KeyAt returns a view of the key bytes at slot i. The returned slice
// aliases the page buffer; callers must not retain it past a mutation.
func (l *Leaf) KeyAt(i int) []byte {
	off := l.slotOffset(i)
	return l.buf[off : off+l.KeySize()]
}

// SetKeyAt overwrites the key bytes at slot i.
func (l *Leaf) SetKeyAt(i int, key []byte) {
	off := l.slotOffset(i)
	copy(l.buf[off:off+l.KeySize()], key)
}

// ValueAt returns the RID stored at slot i.
func (l *Leaf) ValueAt(i int) RID {
	off := l.slotOffset(i) + l.KeySize()
	return UnmarshalRID(l.buf[off : off+RIDSize])
}

// SetValueAt overwrites the RID at slot i.
func (l *Leaf) SetValueAt(i int, rid RID) {
	off := l.slotOffset(i) + l.KeySize()
	copy(l.buf[off:off+RIDSize], rid.MarshalBinary())
}

func (l *Leaf) setSlot(i int, key []byte, rid RID) {
	l.SetKeyAt(i, key)
	l.SetValueAt(i, rid)
}

// KeyIndex returns the index of the first slot whose key is >= key under
// cmp, or Size() if every key is smaller.
func (l *Leaf) KeyIndex(key []byte, cmp func(a, b []byte) int) int {
	size := l.Size()
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(l.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the RID for key, if present.
func (l *Leaf) Lookup(key []byte, cmp func(a, b []byte) int) (RID, bool) {
	i := l.KeyIndex(key, cmp)
	if i < l.Size() && cmp(l.KeyAt(i), key) == 0 {
		return l.ValueAt(i), true
	}
	return RID{}, false
}

// Insert inserts (key, rid) in sorted position and returns the new size.
// The caller is responsible for checking Size() < MaxSize() first, and
// for rejecting duplicate keys before calling (spec.md: duplicate keys
// are out of scope for this module's semantics).
func (l *Leaf) Insert(key []byte, rid RID, cmp func(a, b []byte) int) int {
	i := l.KeyIndex(key, cmp)
	size := l.Size()
	for j := size; j > i; j-- {
		l.setSlot(j, l.KeyAt(j-1), l.ValueAt(j-1))
	}
	l.setSlot(i, key, rid)
	l.SetSize(size + 1)
	return size + 1
}

// RemoveAt deletes the slot at index i, shifting later slots down.
func (l *Leaf) RemoveAt(i int) {
	size := l.Size()
	for j := i; j < size-1; j++ {
		l.setSlot(j, l.KeyAt(j+1), l.ValueAt(j+1))
	}
	l.SetSize(size - 1)
}

// MoveHalfTo moves the upper half of l's slots to dst, which must be
// empty. Used by split.
func (l *Leaf) MoveHalfTo(dst *Leaf) {
	size := l.Size()
	mid := size / 2
	for i := mid; i < size; i++ {
		dst.setSlot(i-mid, l.KeyAt(i), l.ValueAt(i))
	}
	dst.SetSize(size - mid)
	l.SetSize(mid)
}

// MoveAllTo appends all of l's slots onto the end of dst, used when
// coalescing two leaves.
func (l *Leaf) MoveAllTo(dst *Leaf) {
	dSize := dst.Size()
	size := l.Size()
	for i := 0; i < size; i++ {
		dst.setSlot(dSize+i, l.KeyAt(i), l.ValueAt(i))
	}
	dst.SetSize(dSize + size)
	l.SetSize(0)
}

// MoveFirstToEndOf moves l's first slot to the end of dst, used when
// redistributing from a right sibling into a left one.
func (l *Leaf) MoveFirstToEndOf(dst *Leaf) {
	dSize := dst.Size()
	dst.setSlot(dSize, l.KeyAt(0), l.ValueAt(0))
	dst.SetSize(dSize + 1)
	l.RemoveAt(0)
}

// MoveLastToFrontOf moves l's last slot to the front of dst, used when
// redistributing from a left sibling into a right one.
func (l *Leaf) MoveLastToFrontOf(dst *Leaf) {
	size := l.Size()
	last := size - 1
	key, rid := l.KeyAt(last), l.ValueAt(last)
	dSize := dst.Size()
	for j := dSize; j > 0; j-- {
		dst.setSlot(j, dst.KeyAt(j-1), dst.ValueAt(j-1))
	}
	dst.setSlot(0, key, rid)
	dst.SetSize(dSize + 1)
	l.SetSize(last)
}
