package header

import "testing"

func TestInsertGetRoundTrip(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])

	if err := h.InsertRecord("orders", 7); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	id, ok := h.GetRootID("orders")
	if !ok || id != 7 {
		t.Fatalf("GetRootID(orders) = %d, %v; want 7, true", id, ok)
	}
}

func TestInsertDuplicateFails(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])
	h.InsertRecord("orders", 1)
	if err := h.InsertRecord("orders", 2); err == nil {
		t.Fatalf("InsertRecord of a duplicate name did not error")
	}
}

func TestUpdateRecord(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])
	h.InsertRecord("orders", 1)
	if err := h.UpdateRecord("orders", 99); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	id, _ := h.GetRootID("orders")
	if id != 99 {
		t.Fatalf("GetRootID after update = %d, want 99", id)
	}
}

func TestUpdateMissingFails(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])
	if err := h.UpdateRecord("missing", 1); err == nil {
		t.Fatalf("UpdateRecord of a missing name did not error")
	}
}

func TestDeleteRecord(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])
	h.InsertRecord("orders", 1)
	h.InsertRecord("customers", 2)

	if err := h.DeleteRecord("orders"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, ok := h.GetRootID("orders"); ok {
		t.Fatalf("GetRootID(orders) found a value after delete")
	}
	id, ok := h.GetRootID("customers")
	if !ok || id != 2 {
		t.Fatalf("GetRootID(customers) = %d, %v after deleting a different record; want 2, true", id, ok)
	}
}

func TestMultipleIndexesCoexist(t *testing.T) {
	var buf [4096]byte
	h := New(buf[:])
	h.InsertRecord("a", 1)
	h.InsertRecord("b", 2)
	h.InsertRecord("c", 3)

	for name, want := range map[string]int64{"a": 1, "b": 2, "c": 3} {
		got, ok := h.GetRootID(name)
		if !ok || got != want {
			t.Fatalf("GetRootID(%q) = %d, %v; want %d, true", name, got, ok, want)
		}
	}
}
