package property

import "github.com/danmuck/invokereader/internal/protocol/amf"

// Invocation is a remote call: command name, transaction id and argument trees.
type Invocation struct {
	Command       string
	TransactionID float64
	Arguments     []*Node
	released      bool
}

// FromDecoded builds an invocation from a decoded command body. It reports false
// when the body is not an invocation: fewer than two values, a non-string command
// or a non-numeric transaction id. Arguments that build to nothing are dropped.
func FromDecoded(values []amf.Value) (*Invocation, bool) {
	if len(values) < 2 {
		return nil, false
	}
	if values[0].Type != amf.TypeString || !values[1].Type.IsNumeric() {
		return nil, false
	}
	inv := &Invocation{
		Command:       values[0].Text,
		TransactionID: values[1].Number,
		Arguments:     make([]*Node, 0, len(values)-2),
	}
	for _, v := range values[2:] {
		if arg, ok := Build(v); ok {
			inv.Arguments = append(inv.Arguments, arg)
		}
	}
	return inv, true
}

// Count returns the number of nodes across all argument trees.
func (inv *Invocation) Count() int {
	if inv == nil {
		return 0
	}
	total := 0
	for _, arg := range inv.Arguments {
		total += arg.Count()
	}
	return total
}

func (inv *Invocation) Released() bool {
	return inv != nil && inv.released
}
