// Package bufferpool implements the frame-cached page manager every tree
// operation goes through: fetch/pin a page by id, mutate it in place, and
// unpin it when done. It is the direct translation of
// buffer_pool_manager.cpp's FetchPageImpl/UnpinPageImpl/FlushPageImpl/
// NewPageImpl/DeletePageImpl into Go, generalized to this module's
// diskmgr.Manager and page.Page types.
package bufferpool

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bptreeidx/internal/diskmgr"
	"bptreeidx/internal/page"
	"bptreeidx/internal/replacer"
)

// ErrNoFreeFrames is returned by Fetch/NewPage when every frame is pinned
// and nothing is left in the replacer to evict.
var ErrNoFreeFrames = errors.New("bufferpool: no free frames available")

// ErrPagePinned is returned by DeletePage when the page is still pinned.
var ErrPagePinned = errors.New("bufferpool: page is still pinned")

type frame struct {
	page     *page.Page
	pageID   int64
	pinCount int
	dirty    bool
}

// Pool is the fixed-size set of in-memory frames backing a disk manager.
// It is safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	disk     diskmgr.Manager
	log      *zap.Logger
	frames   []frame
	pageTbl  map[int64]int // page id -> frame index
	freeList []int
	repl     *replacer.LRU
}

// New returns a Pool with poolSize frames, backed by disk.
func New(poolSize int, disk diskmgr.Manager, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pool{
		disk:    disk,
		log:     log,
		frames:  make([]frame, poolSize),
		pageTbl: make(map[int64]int, poolSize),
		repl:    replacer.New(poolSize),
	}
	for i := 0; i < poolSize; i++ {
		p.frames[i].page = &page.Page{}
		p.freeList = append(p.freeList, i)
	}
	return p
}

// Size returns the number of frames in the pool.
func (p *Pool) Size() int { return len(p.frames) }

// Stats summarizes current pool occupancy.
type Stats struct {
	FrameCount  int
	PinnedCount int
	FreeCount   int
	BytesTotal  uint64
}

// String renders Stats in human-readable byte units.
func (s Stats) String() string {
	return "frames=" + humanize.Comma(int64(s.FrameCount)) +
		" pinned=" + humanize.Comma(int64(s.PinnedCount)) +
		" free=" + humanize.Comma(int64(s.FreeCount)) +
		" bytes=" + humanize.Bytes(s.BytesTotal)
}

// Stats reports current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	pinned := 0
	for i := range p.frames {
		if _, resident := p.pageTbl[p.frames[i].pageID]; resident && p.frames[i].pinCount > 0 {
			pinned++
		}
	}
	return Stats{
		FrameCount:  len(p.frames),
		PinnedCount: pinned,
		FreeCount:   len(p.frames) - len(p.pageTbl),
		BytesTotal:  uint64(len(p.frames)) * page.Size,
	}
}

// pickVictim returns a frame index to reuse, evicting from the free list
// first and the replacer second, exactly mirroring FetchPageImpl /
// NewPageImpl's shared "replacement page" step. ok is false when no frame
// is available at all.
func (p *Pool) pickVictim() (idx int, ok bool) {
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, true
	}
	fid, ok := p.repl.Victim()
	if !ok {
		return 0, false
	}
	f := &p.frames[fid]
	if f.dirty {
		if err := p.disk.WritePage(f.pageID, f.page.Data[:]); err != nil {
			p.log.Warn("evict: writeback failed", zap.Int64("page_id", f.pageID), zap.Error(err))
		}
	}
	delete(p.pageTbl, f.pageID)
	return fid, true
}

// Fetch pins and returns pageID's page, reading it from disk if it is not
// already resident.
func (p *Pool) Fetch(pageID int64) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, resident := p.pageTbl[pageID]; resident {
		f := &p.frames[fid]
		p.repl.Pin(fid)
		f.pinCount++
		p.log.Debug("fetch hit", zap.Int64("page_id", pageID))
		return f.page, nil
	}

	fid, ok := p.pickVictim()
	if !ok {
		return nil, ErrNoFreeFrames
	}
	f := &p.frames[fid]
	if err := p.disk.ReadPage(pageID, f.page.Data[:]); err != nil {
		return nil, errors.Wrapf(err, "fetch page %d", pageID)
	}
	p.pageTbl[pageID] = fid
	f.pageID = pageID
	f.pinCount = 1
	f.dirty = false
	p.log.Debug("fetch miss", zap.Int64("page_id", pageID))
	return f.page, nil
}

// Unpin decrements pageID's pin count. isDirty, if true, marks the page
// dirty; it is a monotonic set and never clears a page that is already
// dirty. Once the pin count reaches zero the frame becomes evictable.
// Unpinning a page that is not resident, or over-unpinning one with a
// zero pin count, returns false.
func (p *Pool) Unpin(pageID int64, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, resident := p.pageTbl[pageID]
	if !resident {
		return false
	}
	f := &p.frames[fid]
	if f.pinCount <= 0 {
		return false
	}
	if !f.dirty {
		f.dirty = isDirty
	}
	f.pinCount--
	if f.pinCount == 0 {
		p.repl.Unpin(fid)
	}
	return true
}

// Flush writes pageID's current content back to disk if dirty, then
// clears the dirty flag. Flushing a clean or non-resident page is a
// cheap no-op; it never errors for a page that simply isn't dirty.
func (p *Pool) Flush(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(pageID)
}

func (p *Pool) flushLocked(pageID int64) error {
	fid, resident := p.pageTbl[pageID]
	if !resident {
		return nil
	}
	f := &p.frames[fid]
	if f.dirty {
		if err := p.disk.WritePage(pageID, f.page.Data[:]); err != nil {
			return errors.Wrapf(err, "flush page %d", pageID)
		}
		p.log.Debug("flush", zap.Int64("page_id", pageID))
	}
	f.dirty = false
	return nil
}

// FlushAll flushes every resident page.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pageID := range p.pageTbl {
		if err := p.flushLocked(pageID); err != nil {
			return err
		}
	}
	return nil
}

// NewPage allocates a fresh page on disk, pins it in a frame, and returns
// both the page and its id.
func (p *Pool) NewPage() (*page.Page, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.freeList) == 0 && p.repl.Size() <= 0 {
		return nil, 0, ErrNoFreeFrames
	}
	fid, ok := p.pickVictim()
	if !ok {
		return nil, 0, ErrNoFreeFrames
	}
	pageID, err := p.disk.AllocatePage()
	if err != nil {
		return nil, 0, errors.Wrap(err, "allocate page")
	}
	f := &p.frames[fid]
	f.pageID = pageID
	f.pinCount = 1
	f.dirty = false
	f.page.Reset()
	p.pageTbl[pageID] = fid
	p.log.Debug("new page", zap.Int64("page_id", pageID))
	return f.page, pageID, nil
}

// DeletePage removes pageID from the pool and reclaims its storage.
// Deleting a page that isn't resident succeeds without touching disk,
// matching DeletePageImpl's "page == page_table_.end() -> return true"
// branch. Deleting a page that is still pinned fails.
func (p *Pool) DeletePage(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, resident := p.pageTbl[pageID]
	if !resident {
		return nil
	}
	f := &p.frames[fid]
	if f.pinCount != 0 {
		return ErrPagePinned
	}
	delete(p.pageTbl, pageID)
	f.pageID = page.InvalidPageID
	f.pinCount = 0
	f.dirty = false
	f.page.Reset()
	p.repl.Pin(fid)
	p.freeList = append(p.freeList, fid)
	if err := p.disk.DeallocatePage(pageID); err != nil {
		return errors.Wrapf(err, "deallocate page %d", pageID)
	}
	return nil
}
