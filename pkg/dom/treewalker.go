package dom

// FilterResult is returned by a NodeFilter.
type FilterResult int

const (
	// FilterAccept yields the node.
	FilterAccept FilterResult = 1
	// FilterReject skips the node and its subtree.
	FilterReject FilterResult = 2
	// FilterSkip skips the node but visits its children.
	FilterSkip FilterResult = 3
)

// WhatToShow is a bit mask of node types a TreeWalker considers.
type WhatToShow uint32

const (
	ShowAll      WhatToShow = 0xFFFFFFFF
	ShowElement  WhatToShow = 1 << (ElementNode - 1)
	ShowText     WhatToShow = 1 << (TextNode - 1)
	ShowComment  WhatToShow = 1 << (CommentNode - 1)
	ShowFragment WhatToShow = 1 << (DocumentFragmentNode - 1)
)

// NodeFilter decides whether a TreeWalker yields a node.
type NodeFilter func(Node) FilterResult

// TreeWalker iterates over the subtree of a root node in document order.
// It does not enter shadow roots.
type TreeWalker struct {
	root       Node
	whatToShow WhatToShow
	filter     NodeFilter
	current    Node
}

// CreateTreeWalker returns a walker positioned at root. A nil filter
// accepts every node whatToShow admits.
func (d *Document) CreateTreeWalker(root Node, whatToShow WhatToShow, filter NodeFilter) *TreeWalker {
	return &TreeWalker{root: root, whatToShow: whatToShow, filter: filter, current: root}
}

// Root returns the walker's root.
func (w *TreeWalker) Root() Node { return w.root }

// CurrentNode returns the node the walker is positioned at.
func (w *TreeWalker) CurrentNode() Node { return w.current }

func (w *TreeWalker) accept(n Node) FilterResult {
	if w.whatToShow&(1<<(n.NodeType()-1)) == 0 {
		return FilterSkip
	}
	if w.filter == nil {
		return FilterAccept
	}
	return w.filter(n)
}

// NextNode moves to the next accepted node in document order and returns
// it, or nil when the subtree is exhausted.
func (w *TreeWalker) NextNode() Node {
	n := w.current
	result := FilterAccept
	for {
		for result != FilterReject {
			child := n.FirstChild()
			if child == nil {
				break
			}
			n = child
			result = w.accept(n)
			if result == FilterAccept {
				w.current = n
				return n
			}
		}

		var next Node
		for tmp := n; tmp != nil; tmp = tmp.ParentNode() {
			if tmp == w.root {
				return nil
			}
			if next = tmp.NextSibling(); next != nil {
				break
			}
		}
		if next == nil {
			return nil
		}
		n = next
		result = w.accept(n)
		if result == FilterAccept {
			w.current = n
			return n
		}
	}
}
