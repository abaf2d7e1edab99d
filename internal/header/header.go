// Package header implements the root-page-id registry spec.md §6 assigns
// to page id 0: a name-to-root-page-id directory that lets multiple named
// indexes share one buffer pool and disk manager.
package header

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// PageID is the well-known page id every tree's header page lives at.
const PageID int64 = 0

const (
	recordHeaderLen = 4 // name length prefix
	rootIDLen       = 8
)

// Page is a view over the header page's raw bytes: a count-prefixed list
// of (name-length, name, root-page-id) records. It does not hold its own
// copy of the bytes — InsertRecord/UpdateRecord/DeleteRecord mutate the
// slice in place, the same pattern Leaf and Internal page views follow.
type Page struct {
	buf []byte
}

// New wraps data (a Page's Data slice) as a header registry view. The
// caller must zero data first when initializing a brand-new header page.
func New(data []byte) *Page {
	return &Page{buf: data}
}

// recordCount is stored in the first 4 bytes.
func (p *Page) recordCount() int {
	return int(binary.LittleEndian.Uint32(p.buf[0:4]))
}

func (p *Page) setRecordCount(n int) {
	binary.LittleEndian.PutUint32(p.buf[0:4], uint32(n))
}

type record struct {
	name   string
	rootID int64
	offset int // byte offset of this record's start
	length int // total byte length of this record
}

func (p *Page) records() []record {
	var recs []record
	off := 4
	for i := 0; i < p.recordCount(); i++ {
		nameLen := int(binary.LittleEndian.Uint32(p.buf[off:]))
		nameStart := off + recordHeaderLen
		name := string(p.buf[nameStart : nameStart+nameLen])
		rootID := int64(binary.LittleEndian.Uint64(p.buf[nameStart+nameLen:]))
		length := recordHeaderLen + nameLen + rootIDLen
		recs = append(recs, record{name: name, rootID: rootID, offset: off, length: length})
		off += length
	}
	return recs
}

func (p *Page) writeRecords(recs []record) {
	p.setRecordCount(len(recs))
	off := 4
	for _, r := range recs {
		binary.LittleEndian.PutUint32(p.buf[off:], uint32(len(r.name)))
		nameStart := off + recordHeaderLen
		copy(p.buf[nameStart:], r.name)
		binary.LittleEndian.PutUint64(p.buf[nameStart+len(r.name):], uint64(r.rootID))
		off += recordHeaderLen + len(r.name) + rootIDLen
	}
}

// GetRootID returns the root page id registered under name.
func (p *Page) GetRootID(name string) (int64, bool) {
	for _, r := range p.records() {
		if r.name == name {
			return r.rootID, true
		}
	}
	return 0, false
}

// InsertRecord registers a brand-new name -> rootID mapping. It errors if
// name is already registered; use UpdateRecord to change an existing
// mapping.
func (p *Page) InsertRecord(name string, rootID int64) error {
	recs := p.records()
	for _, r := range recs {
		if r.name == name {
			return errors.Errorf("header: record %q already exists", name)
		}
	}
	recs = append(recs, record{name: name, rootID: rootID})
	p.writeRecords(recs)
	return nil
}

// UpdateRecord changes the root page id registered under an existing
// name. It errors if name is not registered.
func (p *Page) UpdateRecord(name string, rootID int64) error {
	recs := p.records()
	for i, r := range recs {
		if r.name == name {
			recs[i].rootID = rootID
			p.writeRecords(recs)
			return nil
		}
	}
	return errors.Errorf("header: record %q not found", name)
}

// DeleteRecord removes name's mapping. It errors if name is not
// registered.
func (p *Page) DeleteRecord(name string) error {
	recs := p.records()
	for i, r := range recs {
		if r.name == name {
			recs = append(recs[:i], recs[i+1:]...)
			p.writeRecords(recs)
			return nil
		}
	}
	return errors.Errorf("header: record %q not found", name)
}
