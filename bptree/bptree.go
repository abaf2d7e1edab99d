// Package bptree implements a disk-backed, buffer-pool-cached B+tree
// ordered index: fixed-width keys, opaque fixed-width RID values, no
// duplicate keys, externally-serialized mutation. It follows
// storage/index/b_plus_tree.cpp's algorithms (search, insert, split,
// remove, coalesce/redistribute, adjust-root) translated to Go's
// page-id/frame-pin idiom via internal/bufferpool and internal/page.
package bptree

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bptreeidx/internal/bufferpool"
	"bptreeidx/internal/diskmgr"
	"bptreeidx/internal/header"
	"bptreeidx/internal/page"
)

// Sentinel errors, checked with errors.Is.
var (
	ErrKeyNotFound   = errors.New("bptree: key not found")
	ErrDuplicateKey  = errors.New("bptree: duplicate key")
	ErrOutOfMemory   = bufferpool.ErrNoFreeFrames
	ErrMalformedPage = errors.New("bptree: malformed page")
)

// Comparator orders two equal-length, fixed-width key encodings. It is
// only ever called with slices of length Options.KeySize.
type Comparator func(a, b []byte) int

// Options configures a tree. LeafMaxSize and InternalMaxSize bound slot
// counts per page (not bytes); KeySize is the fixed width, in bytes, of
// every key this tree stores.
type Options struct {
	IndexName      string
	KeySize        int
	LeafMaxSize    int
	InternalMaxSize int
	Comparator     Comparator
	PoolSize       int
	Logger         *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Comparator == nil {
		o.Comparator = bytes.Compare
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 64
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func (o *Options) validate() error {
	if o.IndexName == "" {
		return errors.New("bptree: Options.IndexName is required")
	}
	if o.KeySize <= 0 {
		return errors.New("bptree: Options.KeySize must be positive")
	}
	if o.LeafMaxSize < 3 {
		return errors.New("bptree: Options.LeafMaxSize must be at least 3")
	}
	if o.InternalMaxSize < 3 {
		return errors.New("bptree: Options.InternalMaxSize must be at least 3")
	}
	return nil
}

// checkCapacity verifies LeafMaxSize/InternalMaxSize leave headroom for
// the one-past-capacity entry that insertion temporarily holds before a
// split, given a 4096-byte page and the configured key size.
func (o *Options) checkCapacity() error {
	slotWidth := o.KeySize + page.RIDSize
	capacity := (page.Size - page.HeaderLen) / slotWidth
	if o.LeafMaxSize+1 > capacity {
		return errors.Errorf("bptree: LeafMaxSize %d too large for KeySize %d (page holds at most %d slots)", o.LeafMaxSize, o.KeySize, capacity)
	}
	if o.InternalMaxSize+1 > capacity {
		return errors.Errorf("bptree: InternalMaxSize %d too large for KeySize %d (page holds at most %d slots)", o.InternalMaxSize, o.KeySize, capacity)
	}
	return nil
}

// leafMinSize and internalMinSize implement the min_size formula DESIGN.md
// resolves: a leaf's min is half of max_size rounded down; an internal
// page's min is half of max_size rounded up (its slot 0 holds a real child
// under a dummy key). The two are equal for even max_size.
func leafMinSize(maxSize int) int     { return maxSize / 2 }
func internalMinSize(maxSize int) int { return (maxSize + 1) / 2 }

// Tree is a disk-backed B+tree index. All exported methods are safe for
// concurrent use: mutations take an exclusive lock, reads take a shared
// one, matching spec.md §5's coarse external-serialization model.
type Tree struct {
	mu   sync.RWMutex
	opts Options
	pool *bufferpool.Pool
	log  *zap.Logger
}

// Open creates or attaches to a named index backed by disk. If the header
// page (id 0) does not yet exist, it is created; if the index name is not
// yet registered there, a fresh empty tree is registered for it.
func Open(disk diskmgr.Manager, opts Options) (*Tree, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := opts.checkCapacity(); err != nil {
		return nil, err
	}

	pool := bufferpool.New(opts.PoolSize, disk, opts.Logger)
	t := &Tree{opts: opts, pool: pool, log: opts.Logger}

	if err := t.ensureHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// ensureHeader guarantees the index name has a registered (possibly
// empty) root. Page id 0 is reserved for the header registry by
// internal/diskmgr (AllocatePage never hands it out), so fetching it
// always succeeds — on a brand-new disk it simply reads back as zeroes,
// which header.Page reads as a zero-record registry.
func (t *Tree) ensureHeader() error {
	hdrPage, err := t.pool.Fetch(header.PageID)
	if err != nil {
		return errors.Wrap(err, "fetch header page")
	}

	h := header.New(hdrPage.Data[:])
	if _, ok := h.GetRootID(t.opts.IndexName); ok {
		t.pool.Unpin(header.PageID, false)
		return nil
	}
	if err := h.InsertRecord(t.opts.IndexName, page.InvalidPageID); err != nil {
		t.pool.Unpin(header.PageID, false)
		return err
	}
	t.pool.Unpin(header.PageID, true)
	return nil
}

// rootID returns the tree's current root page id, or page.InvalidPageID
// if the tree is empty.
func (t *Tree) rootID() (int64, error) {
	hdrPage, err := t.pool.Fetch(header.PageID)
	if err != nil {
		return 0, errors.Wrap(err, "fetch header page")
	}
	defer t.pool.Unpin(header.PageID, false)

	h := header.New(hdrPage.Data[:])
	id, ok := h.GetRootID(t.opts.IndexName)
	if !ok {
		return page.InvalidPageID, nil
	}
	return id, nil
}

// setRootID registers a new root page id for this tree's name.
func (t *Tree) setRootID(id int64) error {
	hdrPage, err := t.pool.Fetch(header.PageID)
	if err != nil {
		return errors.Wrap(err, "fetch header page")
	}
	h := header.New(hdrPage.Data[:])
	if err := h.UpdateRecord(t.opts.IndexName, id); err != nil {
		t.pool.Unpin(header.PageID, false)
		return err
	}
	t.pool.Unpin(header.PageID, true)
	return nil
}

// IsEmpty reports whether the tree currently has no root.
func (t *Tree) IsEmpty() (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, err := t.rootID()
	if err != nil {
		return false, err
	}
	return id == page.InvalidPageID, nil
}

// Close flushes every resident page back to disk.
func (t *Tree) Close() error {
	return t.pool.FlushAll()
}
