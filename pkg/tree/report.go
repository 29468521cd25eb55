package tree

import "strings"

// TreePath is a sequence of nodes from a root down to a node. The empty path denotes
// the model root above all root nodes.
type TreePath []*Node

// IsEmpty reports whether the path denotes the model root.
func (p TreePath) IsEmpty() bool { return len(p) == 0 }

// Last returns the node the path points at, or nil for the empty path.
func (p TreePath) Last() *Node {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// String renders the path as slash-separated labels.
func (p TreePath) String() string {
	labels := make([]string, len(p))
	for i, n := range p {
		labels[i] = n.Label()
	}
	return "/" + strings.Join(labels, "/")
}

// ItemsChange describes children of the node at Path that were removed, inserted or changed.
// Removed indices refer to the children before the mutation; inserted and changed indices to
// the children after it.
type ItemsChange struct {
	Path    TreePath
	Indices []int
	Nodes   []*Node
}

// StructureChange marks the whole subtree under Path as replaced.
type StructureChange struct {
	Path TreePath
}

// ChangeReport describes a single mutation. Any projection may be nil.
type ChangeReport struct {
	Removed          *ItemsChange
	Inserted         *ItemsChange
	StructureChanged *StructureChange
	Changed          *ItemsChange
}

// IsEmpty reports whether no projection is set.
func (r ChangeReport) IsEmpty() bool {
	return r.Removed == nil && r.Inserted == nil && r.StructureChanged == nil && r.Changed == nil
}

func itemsChange(path TreePath, indices []int, nodes []*Node) *ItemsChange {
	if len(indices) == 0 {
		return nil
	}
	return &ItemsChange{Path: path, Indices: indices, Nodes: nodes}
}
