package bptree

import (
	"encoding/binary"
	"testing"

	"github.com/cespare/xxhash/v2"

	"bptreeidx/internal/page"
)

// hashKey deterministically derives a pseudo-random 8-byte key from a
// sequence number via xxhash, so property tests get a reproducible
// "random" key distribution across machines without math/rand's seeding
// ceremony.
func hashKey(seq int) []byte {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(seq))
	h := xxhash.Sum64(seed[:])
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], h)
	return key[:]
}

// TestPropertyAgainstReferenceMap drives a large hashKey-derived
// insert/delete/get sequence against both the tree and a plain Go map,
// checking they always agree — a universal round-trip check of the
// invariant spec.md §8 states as the baseline property every mutation
// must preserve.
func TestPropertyAgainstReferenceMap(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	reference := make(map[string]uint32)

	const n = 2000
	for seq := 0; seq < n; seq++ {
		key := hashKey(seq)
		if _, exists := reference[string(key)]; exists {
			continue
		}
		if err := tree.Insert(key, page.RID{PageID: uint32(seq)}); err != nil {
			t.Fatalf("Insert(seq=%d): %v", seq, err)
		}
		reference[string(key)] = uint32(seq)
	}

	for seq := 0; seq < n; seq += 3 {
		key := hashKey(seq)
		if _, exists := reference[string(key)]; !exists {
			continue
		}
		if err := tree.Delete(key); err != nil {
			t.Fatalf("Delete(seq=%d): %v", seq, err)
		}
		delete(reference, string(key))
	}

	for seq := 0; seq < n; seq++ {
		key := hashKey(seq)
		want, exists := reference[string(key)]
		rid, err := tree.Get(key)
		if exists {
			if err != nil {
				t.Fatalf("Get(seq=%d): %v, want PageID %d", seq, err, want)
			}
			if rid.PageID != want {
				t.Fatalf("Get(seq=%d) = %+v, want PageID %d", seq, rid, want)
			}
		} else if err != ErrKeyNotFound {
			t.Fatalf("Get(seq=%d) = %v, want ErrKeyNotFound (deleted or never inserted)", seq, err)
		}
	}
}
