package property

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Render returns the line-oriented text form of n. Containers print their
// children in order followed by one blank line; scalars print one Key/Value line.
func Render(n *Node) string {
	var b strings.Builder
	renderNode(&b, n)
	return b.String()
}

// RenderInvocation returns the text form of inv without a trailing newline.
func RenderInvocation(inv *Invocation) string {
	var b strings.Builder
	b.WriteString("InvokeName: ")
	b.WriteString(inv.Command)
	if len(inv.Arguments) > 0 {
		fmt.Fprintf(&b, " params count: %d\n", len(inv.Arguments))
		for i, arg := range inv.Arguments {
			fmt.Fprintf(&b, "params[%d][%s]\n", i+1, arg.Type.DisplayName())
			renderNode(&b, arg)
		}
	}
	return b.String()
}

// WriteNode writes the rendering of n to w.
func WriteNode(w io.Writer, n *Node) error {
	_, err := io.WriteString(w, Render(n))
	return err
}

// WriteInvocation writes the rendering of inv to w, terminated by a newline.
func WriteInvocation(w io.Writer, inv *Invocation) error {
	_, err := io.WriteString(w, RenderInvocation(inv)+"\n")
	return err
}

func renderNode(b *strings.Builder, n *Node) {
	if n == nil || n.Payload == nil {
		b.WriteString("Value is Null\n")
		return
	}
	switch p := n.Payload.(type) {
	case Children:
		for _, child := range p {
			renderNode(b, child)
		}
		b.WriteString("\n")
	case Number:
		fmt.Fprintf(b, "Key: %s Value: %s[NUMBER]\n", n.Name, FormatNumber(float64(p)))
	case Text:
		fmt.Fprintf(b, "Key: %s Value: %s[STRING]\n", n.Name, string(p))
	}
}

// FormatNumber prints v with six significant digits, dropping trailing zeros and
// switching to exponent form for large and small magnitudes.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
