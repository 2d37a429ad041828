package property

// Release frees the subtree rooted at n: children first, then the child list,
// then the scalar payload, then the name. It returns the number of nodes freed.
// Releasing an already released node frees nothing.
func (n *Node) Release() int {
	if n == nil || n.released {
		return 0
	}
	freed := 0
	if children, ok := n.Payload.(Children); ok {
		for i, child := range children {
			freed += child.Release()
			children[i] = nil
		}
	}
	n.Payload = nil
	n.Name = ""
	n.released = true
	return freed + 1
}

// Release frees the command and every argument tree. It returns the number of
// nodes freed and is a no-op on a released invocation.
func (inv *Invocation) Release() int {
	if inv == nil || inv.released {
		return 0
	}
	freed := 0
	for i, arg := range inv.Arguments {
		freed += arg.Release()
		inv.Arguments[i] = nil
	}
	inv.Arguments = nil
	inv.Command = ""
	inv.released = true
	return freed
}
