package property

import "github.com/danmuck/invokereader/internal/protocol/amf"

// DefaultName labels every node built from a value without a name, at any depth.
const DefaultName = "--PARAMS--"

// Payload is the value held by a node: Number, Text or Children. A nil Payload
// means the node has no value.
type Payload interface {
	payload()
}

// Number holds Number, Boolean (0/1) and Date payloads.
type Number float64

func (Number) payload() {}

// Text holds String payloads.
type Text string

func (Text) payload() {}

// Children holds the ordered child nodes of a container.
type Children []*Node

func (Children) payload() {}

// Node is one named, typed value in a property tree.
type Node struct {
	Name     string
	Type     amf.Type
	Payload  Payload
	released bool
}

// Children returns the node's child list, or nil for scalar and released nodes.
func (n *Node) Children() Children {
	if n == nil {
		return nil
	}
	children, _ := n.Payload.(Children)
	return children
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil || n.released {
		return 0
	}
	total := 1
	for _, c := range n.Children() {
		total += c.Count()
	}
	return total
}

func (n *Node) Released() bool {
	return n != nil && n.released
}
