package tree

import "sync"

// DirtyRegistry is the set of nodes waiting to be re-synchronized with their backing
// source. It is safe for concurrent use so background collaborators can mark nodes.
type DirtyRegistry struct {
	mu    sync.Mutex
	nodes map[*Node]struct{}
	order []*Node
}

// NewDirtyRegistry creates an empty registry.
func NewDirtyRegistry() *DirtyRegistry {
	return &DirtyRegistry{nodes: make(map[*Node]struct{})}
}

// Mark adds n. It reports false if n was already dirty.
func (d *DirtyRegistry) Mark(n *Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.nodes[n]; ok {
		return false
	}
	d.nodes[n] = struct{}{}
	d.order = append(d.order, n)
	return true
}

// Clear removes n.
func (d *DirtyRegistry) Clear(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.nodes[n]; !ok {
		return
	}
	delete(d.nodes, n)
	for i, o := range d.order {
		if o == n {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether n is dirty.
func (d *DirtyRegistry) Contains(n *Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.nodes[n]
	return ok
}

// Len returns the number of dirty nodes.
func (d *DirtyRegistry) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// Snapshot returns the dirty nodes in the order they were marked.
func (d *DirtyRegistry) Snapshot() []*Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Node(nil), d.order...)
}
