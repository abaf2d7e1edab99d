// Package replacer implements an approximate-LRU frame-eviction policy for
// the buffer pool. Frames enter the replacer's candidate set on Unpin and
// leave it on Pin or Victim; the least-recently-unpinned frame is always
// the next victim.
package replacer

import "container/list"

// LRU tracks unpinned frame ids in recency order and picks eviction
// victims. It is not safe for concurrent use; the buffer pool serializes
// access with its own mutex.
type LRU struct {
	capacity int
	order    *list.List
	entries  map[int]*list.Element
}

// New returns an LRU replacer sized for the given number of frames.
func New(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[int]*list.Element, capacity),
	}
}

// Unpin marks frameID as eligible for eviction. It becomes the
// most-recently-unpinned frame. A frame already present is a no-op.
func (r *LRU) Unpin(frameID int) {
	if _, ok := r.entries[frameID]; ok {
		return
	}
	r.entries[frameID] = r.order.PushBack(frameID)
}

// Pin removes frameID from the candidate set, if present.
func (r *LRU) Pin(frameID int) {
	el, ok := r.entries[frameID]
	if !ok {
		return
	}
	r.order.Remove(el)
	delete(r.entries, frameID)
}

// Victim removes and returns the least-recently-unpinned frame. ok is
// false when no frame is currently evictable.
func (r *LRU) Victim() (frameID int, ok bool) {
	front := r.order.Front()
	if front == nil {
		return 0, false
	}
	r.order.Remove(front)
	frameID = front.Value.(int)
	delete(r.entries, frameID)
	return frameID, true
}

// Size reports the number of frames currently evictable.
func (r *LRU) Size() int {
	return r.order.Len()
}
