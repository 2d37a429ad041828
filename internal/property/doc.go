// Package property turns decoded AMF values into owned, typed property trees.
//
// Ownership boundary:
// - node and payload shapes
// - tree construction from decoded values
// - invocation records built from command bodies
// - text rendering and release of trees
//
// A tree shares no memory with the decoded values it was built from. Each node
// owns its children exclusively; releasing a node releases its whole subtree once.
package property
