// Package diskmgr defines the disk-manager collaborator boundary this
// index relies on: reading, writing, and allocating fixed-size pages. The
// buffer pool is the only caller; it never touches a file descriptor
// directly.
package diskmgr

// PageSize is the fixed size, in bytes, of every page this module reads or
// writes. Leaf and internal tree pages, and the header page, all use this
// width.
const PageSize = 4096

// Manager is the external collaborator spec.md §1 calls out as out of
// scope for this module's own implementation responsibilities, beyond the
// reference implementations in this package used for tests and the
// demo/bench command. A real deployment may back this with any storage
// medium as long as it honors page-id stability and read/write semantics.
type Manager interface {
	// ReadPage fills dst (len(dst) must equal PageSize) with the on-disk
	// content of pageID. Reading a page that was never written returns a
	// zeroed buffer, not an error.
	ReadPage(pageID int64, dst []byte) error

	// WritePage persists src (len(src) must equal PageSize) as the content
	// of pageID.
	WritePage(pageID int64, src []byte) error

	// AllocatePage reserves and returns a fresh page id. It never reuses a
	// live id.
	AllocatePage() (int64, error)

	// DeallocatePage marks pageID's storage as reclaimable. Implementations
	// may no-op; callers must not rely on id reuse.
	DeallocatePage(pageID int64) error
}
