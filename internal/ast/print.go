package ast

import "fmt"

// Print renders a node as a deterministic debug string for tests. It is a
// plain Stringer walk (every node already implements String()) rather
// than a JSON tree, since the surface AST is printed for humans, not
// machine comparison.
func Print(node Node) string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T %s", node, node.String())
}

// PrintFile renders every item in a file, one per line.
func PrintFile(f *File) string {
	if f == nil {
		return "<nil file>"
	}
	out := ""
	for _, item := range f.Items {
		out += Print(item) + "\n"
	}
	return out
}
