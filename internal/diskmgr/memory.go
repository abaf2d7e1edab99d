package diskmgr

import "sync"

// Memory is an in-process Manager backed by a map of page buffers. It is
// used by tests and by anything that wants a disk manager without a real
// file, matching the teacher's pattern of keeping an in-memory pager
// alongside the file-backed one for fast unit tests.
type Memory struct {
	mu     sync.Mutex
	pages  map[int64][]byte
	nextID int64
}

// NewMemory returns an empty in-memory disk manager. Page id 0 is
// reserved for the header registry page (internal/header.PageID) and is
// never handed out by AllocatePage.
func NewMemory() *Memory {
	return &Memory{pages: make(map[int64][]byte), nextID: 1}
}

func (m *Memory) ReadPage(pageID int64, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.pages[pageID]
	if !ok {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, buf)
	return nil
}

func (m *Memory) WritePage(pageID int64, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.pages[pageID]
	if !ok {
		buf = make([]byte, PageSize)
		m.pages[pageID] = buf
	}
	copy(buf, src)
	return nil
}

func (m *Memory) AllocatePage() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *Memory) DeallocatePage(pageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageID)
	return nil
}
