package domdiff

import (
	"fmt"
	"strings"

	"github.com/vango-dev/bore/pkg/dom"
)

// Op is the type of patch operation.
type Op uint8

const (
	OpSetText     Op = 0x01 // Update text or comment data
	OpSetAttr     Op = 0x02 // Set/update attribute
	OpRemoveAttr  Op = 0x03 // Remove attribute
	OpInsertNode  Op = 0x04 // Insert new node
	OpRemoveNode  Op = 0x05 // Remove node
	OpReplaceNode Op = 0x07 // Replace node entirely
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpSetText:
		return "SetText"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpInsertNode:
		return "InsertNode"
	case OpRemoveNode:
		return "RemoveNode"
	case OpReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single change that moves Source toward Destination.
type Patch struct {
	Op     Op       // Operation type
	Path   []int    // Child indexes from the compared root to the target
	Target dom.Node // Node in the source tree (parent for InsertNode)
	Node   dom.Node // Destination node for InsertNode/ReplaceNode
	Key    string   // Attribute key (for SetAttr/RemoveAttr)
	Value  string   // New value
	Delta  string   // diffmatchpatch delta for SetText
	Index  int      // Insert position
}

// String renders the patch on one line.
func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(p.Op.String())
	b.WriteString(" ")
	b.WriteString(pathString(p.Path))
	switch p.Op {
	case OpSetText:
		fmt.Fprintf(&b, " %q", p.Value)
	case OpSetAttr:
		fmt.Fprintf(&b, " %s=%q", p.Key, p.Value)
	case OpRemoveAttr:
		fmt.Fprintf(&b, " %s", p.Key)
	case OpInsertNode:
		fmt.Fprintf(&b, " [%d] %s", p.Index, describe(p.Node))
	case OpRemoveNode:
		fmt.Fprintf(&b, " %s", describe(p.Target))
	case OpReplaceNode:
		fmt.Fprintf(&b, " %s -> %s", describe(p.Target), describe(p.Node))
	}
	return b.String()
}

func pathString(path []int) string {
	if len(path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, i := range path {
		fmt.Fprintf(&b, "/%d", i)
	}
	return b.String()
}

func describe(n dom.Node) string {
	switch v := n.(type) {
	case nil:
		return "<nil>"
	case *dom.Element:
		return "<" + v.LocalName() + ">"
	case *dom.Text:
		return fmt.Sprintf("%q", v.Data())
	default:
		return n.NodeName()
	}
}
