package domdiff

import (
	"slices"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/vango-dev/bore/pkg/dom"
)

// Options selects the trees Diff compares.
type Options struct {
	// Destination is the tree the patches lead to.
	Destination dom.Node
	// Source is the tree the patches apply to.
	Source dom.Node
	// Root compares the two roots themselves. Without it only their
	// children are compared.
	Root bool
}

// Diff compares two DOM trees and returns the patches needed to transform
// Source into Destination. Children are matched by position. Properties,
// listeners and shadow roots are ignored.
func Diff(opts Options) []Patch {
	d := &differ{dmp: diffmatchpatch.New()}
	if opts.Root {
		d.diff(opts.Source, opts.Destination, nil)
	} else if opts.Source != nil && opts.Destination != nil {
		d.diffChildren(opts.Source, opts.Destination, nil)
	} else {
		d.diff(opts.Source, opts.Destination, nil)
	}
	return d.patches
}

// Equal reports whether a and b are structurally identical, roots
// included.
func Equal(a, b dom.Node) bool {
	return len(Diff(Options{Destination: a, Source: b, Root: true})) == 0
}

type differ struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	patches []Patch
}

func (d *differ) add(p Patch) { d.patches = append(d.patches, p) }

// diff recursively compares src with dst and appends patches.
func (d *differ) diff(src, dst dom.Node, path []int) {
	// Both nil - nothing to do
	if src == nil && dst == nil {
		return
	}

	if src == nil {
		d.add(Patch{Op: OpInsertNode, Path: path, Node: dst})
		return
	}

	if dst == nil {
		d.add(Patch{Op: OpRemoveNode, Path: path, Target: src})
		return
	}

	// Different types - replace
	if src.NodeType() != dst.NodeType() {
		d.add(Patch{Op: OpReplaceNode, Path: path, Target: src, Node: dst})
		return
	}

	switch s := src.(type) {
	case *dom.Element:
		d.diffElement(s, dst.(*dom.Element), path)
	case *dom.Text:
		d.diffData(src, s.Data(), dst.(*dom.Text).Data(), path)
	case *dom.Comment:
		d.diffData(src, s.Data(), dst.(*dom.Comment).Data(), path)
	default:
		d.diffChildren(src, dst, path)
	}
}

// diffData compares text or comment data.
func (d *differ) diffData(src dom.Node, prev, next string, path []int) {
	if prev == next {
		return
	}
	diffs := d.dmp.DiffMain(prev, next, false)
	d.add(Patch{
		Op:     OpSetText,
		Path:   path,
		Target: src,
		Value:  next,
		Delta:  d.dmp.DiffToDelta(diffs),
	})
}

// diffElement compares element nodes.
func (d *differ) diffElement(src, dst *dom.Element, path []int) {
	// Different tag - replace entire node
	if src.LocalName() != dst.LocalName() {
		d.add(Patch{Op: OpReplaceNode, Path: path, Target: src, Node: dst})
		return
	}
	d.diffAttrs(src, dst, path)
	d.diffChildren(src, dst, path)
}

// diffAttrs compares attributes in source order.
func (d *differ) diffAttrs(src, dst *dom.Element, path []int) {
	for _, a := range src.Attributes() {
		next, ok := dst.LookupAttribute(a.Name)
		if !ok {
			d.add(Patch{Op: OpRemoveAttr, Path: path, Target: src, Key: a.Name})
		} else if next != a.Value {
			d.add(Patch{Op: OpSetAttr, Path: path, Target: src, Key: a.Name, Value: next})
		}
	}
	for _, a := range dst.Attributes() {
		if !src.HasAttribute(a.Name) {
			d.add(Patch{Op: OpSetAttr, Path: path, Target: src, Key: a.Name, Value: a.Value})
		}
	}
}

// diffChildren compares children by position. Extra destination children
// are inserted and extra source children removed.
func (d *differ) diffChildren(src, dst dom.Node, path []int) {
	srcKids := src.ChildNodes()
	dstKids := dst.ChildNodes()

	common := min(len(srcKids), len(dstKids))
	for i := 0; i < common; i++ {
		d.diff(srcKids[i], dstKids[i], childPath(path, i))
	}
	for i := common; i < len(dstKids); i++ {
		d.add(Patch{Op: OpInsertNode, Path: path, Target: src, Node: dstKids[i], Index: i})
	}
	// Remove from the end so earlier indexes stay valid
	for i := len(srcKids) - 1; i >= common; i-- {
		d.add(Patch{Op: OpRemoveNode, Path: childPath(path, i), Target: srcKids[i]})
	}
}

func childPath(path []int, i int) []int {
	return append(slices.Clip(path), i)
}
