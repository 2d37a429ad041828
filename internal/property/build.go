package property

import (
	"fmt"

	"github.com/danmuck/invokereader/internal/protocol/amf"
)

// Build converts one decoded value and its descendants into a node. Null and
// Invalid values produce no node; containers silently drop such children.
//
// Build panics on a type tag it has no payload rule for. That signals a decoder
// contract mismatch, not bad input.
func Build(v amf.Value) (*Node, bool) {
	switch v.Type {
	case amf.TypeInvalid, amf.TypeNull:
		return nil, false
	}

	name := v.Name
	if name == "" {
		name = DefaultName
	}
	n := &Node{Name: name, Type: v.Type}

	switch v.Type {
	case amf.TypeObject, amf.TypeEcmaArray, amf.TypeStrictArray:
		children := make(Children, 0, len(v.Children))
		for _, child := range v.Children {
			if built, ok := Build(child); ok {
				children = append(children, built)
			}
		}
		n.Payload = children
	case amf.TypeNumber, amf.TypeDate:
		n.Payload = Number(v.Number)
	case amf.TypeBoolean:
		if v.Number != 0 {
			n.Payload = Number(1)
		} else {
			n.Payload = Number(0)
		}
	case amf.TypeString:
		n.Payload = Text(v.Text)
	default:
		panic(fmt.Sprintf("property: unreachable type tag 0x%02x for %q", uint8(v.Type), name))
	}
	return n, true
}
