package bptree

import (
	"fmt"
	"io"

	"bptreeidx/internal/page"
)

// WriteDOT renders the tree as a Graphviz dot graph: one record-shaped
// node per page, with parent-child and leaf-sibling edges. It mirrors
// b_plus_tree.cpp's ToGraph, walking the tree read-only through the
// buffer pool.
func (t *Tree) WriteDOT(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rootID, err := t.rootID()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "digraph G {")
	fmt.Fprintln(w, "  node [shape=record];")
	if rootID != page.InvalidPageID {
		if err := t.writeDOTPage(w, rootID); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}

func (t *Tree) writeDOTPage(w io.Writer, pageID int64) error {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return err
	}
	defer t.pool.Unpin(pageID, false)

	h := page.NewInternal(pg.Data[:]).Header
	if h.IsLeaf() {
		leaf := page.NewLeaf(pg.Data[:])
		fmt.Fprintf(w, "  p%d [label=\"leaf %d|", pageID, pageID)
		for i := 0; i < leaf.Size(); i++ {
			if i > 0 {
				fmt.Fprint(w, "|")
			}
			fmt.Fprintf(w, "%x", leaf.KeyAt(i))
		}
		fmt.Fprintln(w, "\"];")
		if next := leaf.NextPageID(); next != page.InvalidPageID {
			fmt.Fprintf(w, "  p%d -> p%d [style=dashed];\n", pageID, next)
		}
		return nil
	}

	internal := page.NewInternal(pg.Data[:])
	fmt.Fprintf(w, "  p%d [label=\"internal %d|", pageID, pageID)
	for i := 1; i < internal.Size(); i++ {
		if i > 1 {
			fmt.Fprint(w, "|")
		}
		fmt.Fprintf(w, "%x", internal.KeyAt(i))
	}
	fmt.Fprintln(w, "\"];")

	children := make([]int64, internal.Size())
	for i := 0; i < internal.Size(); i++ {
		children[i] = internal.ValueAt(i)
	}
	for _, childID := range children {
		fmt.Fprintf(w, "  p%d -> p%d;\n", pageID, childID)
	}
	for _, childID := range children {
		if err := t.writeDOTPage(w, childID); err != nil {
			return err
		}
	}
	return nil
}

// WriteText dumps a recursive pre-order listing of every page's keys,
// indented by depth, mirroring b_plus_tree.cpp's ToString.
func (t *Tree) WriteText(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rootID, err := t.rootID()
	if err != nil {
		return err
	}
	if rootID == page.InvalidPageID {
		fmt.Fprintln(w, "<empty tree>")
		return nil
	}
	return t.writeTextPage(w, rootID, 0)
}

func (t *Tree) writeTextPage(w io.Writer, pageID int64, depth int) error {
	pg, err := t.pool.Fetch(pageID)
	if err != nil {
		return err
	}
	defer t.pool.Unpin(pageID, false)

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	h := page.NewInternal(pg.Data[:]).Header
	if h.IsLeaf() {
		leaf := page.NewLeaf(pg.Data[:])
		fmt.Fprintf(w, "%sLeaf(%d) size=%d: ", indent, pageID, leaf.Size())
		for i := 0; i < leaf.Size(); i++ {
			fmt.Fprintf(w, "%x ", leaf.KeyAt(i))
		}
		fmt.Fprintln(w)
		return nil
	}

	internal := page.NewInternal(pg.Data[:])
	fmt.Fprintf(w, "%sInternal(%d) size=%d: ", indent, pageID, internal.Size())
	for i := 1; i < internal.Size(); i++ {
		fmt.Fprintf(w, "%x ", internal.KeyAt(i))
	}
	fmt.Fprintln(w)

	children := make([]int64, internal.Size())
	for i := 0; i < internal.Size(); i++ {
		children[i] = internal.ValueAt(i)
	}
	for _, childID := range children {
		if err := t.writeTextPage(w, childID, depth+1); err != nil {
			return err
		}
	}
	return nil
}
