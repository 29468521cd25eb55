// Package treemodel adapts a forest of tree nodes to the contract a tree view consumes:
// child and leaf queries, insertion positions, and four change events.
package treemodel

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-datatree/pkg/tree"
)

// ErrNotInModel is returned for nodes that are neither a root of the model nor attached
// under one.
var ErrNotInModel = errors.New("node is not in the model")

type event int

const (
	eventRemoved event = iota
	eventInserted
	eventStructure
	eventChanged
)

// Subscription identifies a listener registered on one of the model's events.
type Subscription struct {
	event event
	id    tree.Subscription
}

// Model owns an ordered list of root nodes and republishes their change reports.
type Model struct {
	env    *tree.Env
	logger *logrus.Logger

	roots []*tree.Node
	subs  map[*tree.Node]tree.Subscription

	removed   tree.Listeners[tree.ItemsChange]
	inserted  tree.Listeners[tree.ItemsChange]
	structure tree.Listeners[tree.StructureChange]
	changed   tree.Listeners[tree.ItemsChange]
}

// New creates an empty model. A nil env gets a fresh one; a nil logger discards output.
func New(env *tree.Env, logger *logrus.Logger) *Model {
	if env == nil {
		env = tree.NewEnv(nil)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Model{
		env:    env,
		logger: logger,
		subs:   make(map[*tree.Node]tree.Subscription),
	}
}

// Env returns the environment shared by the model's nodes.
func (m *Model) Env() *tree.Env { return m.env }

// OnNodesRemoved registers fn for removed children. Indices refer to the list before removal.
func (m *Model) OnNodesRemoved(fn func(tree.ItemsChange)) Subscription {
	return Subscription{event: eventRemoved, id: m.removed.Add(fn)}
}

// OnNodesInserted registers fn for inserted children.
func (m *Model) OnNodesInserted(fn func(tree.ItemsChange)) Subscription {
	return Subscription{event: eventInserted, id: m.inserted.Add(fn)}
}

// OnStructureChanged registers fn for subtrees that were replaced wholesale.
func (m *Model) OnStructureChanged(fn func(tree.StructureChange)) Subscription {
	return Subscription{event: eventStructure, id: m.structure.Add(fn)}
}

// OnNodesChanged registers fn for children whose displayed value changed.
func (m *Model) OnNodesChanged(fn func(tree.ItemsChange)) Subscription {
	return Subscription{event: eventChanged, id: m.changed.Add(fn)}
}

// Unsubscribe removes a listener. Unsubscribing twice is a no-op.
func (m *Model) Unsubscribe(sub Subscription) {
	switch sub.event {
	case eventRemoved:
		m.removed.Remove(sub.id)
	case eventInserted:
		m.inserted.Remove(sub.id)
	case eventStructure:
		m.structure.Remove(sub.id)
	case eventChanged:
		m.changed.Remove(sub.id)
	}
}

// forward translates a node report into model events.
func (m *Model) forward(r tree.ChangeReport) {
	if r.Removed != nil {
		m.removed.Emit(*r.Removed)
	}
	if r.Inserted != nil {
		m.inserted.Emit(*r.Inserted)
	}
	if r.StructureChanged != nil {
		m.structure.Emit(*r.StructureChanged)
	}
	if r.Changed != nil {
		m.changed.Emit(*r.Changed)
	}
}

// RootNodes returns a copy of the roots in display order.
func (m *Model) RootNodes() []*tree.Node {
	return append([]*tree.Node(nil), m.roots...)
}

func (m *Model) rootIndex(n *tree.Node) int {
	for i, r := range m.roots {
		if r == n {
			return i
		}
	}
	return -1
}

// Contains reports whether n is a root or attached under one.
func (m *Model) Contains(n *tree.Node) bool {
	return m.rootIndex(n.Root()) >= 0
}

// Replace drops every root and imports sources in their place. The sources are converted
// first, so a conversion error leaves the model untouched.
func (m *Model) Replace(sources ...any) error {
	nodes, err := m.makeNodes(sources)
	if err != nil {
		return err
	}
	m.clear()
	return m.ImportNodes(nodes...)
}

func (m *Model) clear() {
	if len(m.roots) == 0 {
		return
	}
	indices := make([]int, len(m.roots))
	for i := range indices {
		indices[i] = i
	}
	m.removed.Emit(tree.ItemsChange{Indices: indices, Nodes: m.RootNodes()})
	for _, r := range m.roots {
		r.Unsubscribe(m.subs[r])
		delete(m.subs, r)
	}
	m.roots = nil
}

// Import converts source descriptors into root nodes and appends them.
func (m *Model) Import(sources ...any) error {
	nodes, err := m.makeNodes(sources)
	if err != nil {
		return err
	}
	return m.ImportNodes(nodes...)
}

func (m *Model) makeNodes(sources []any) ([]*tree.Node, error) {
	nodes := make([]*tree.Node, 0, len(sources))
	for i, src := range sources {
		n, err := tree.MakeNode(m.env, src)
		if err != nil {
			return nil, fmt.Errorf("import source %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ImportNodes appends detached nodes as roots. The whole batch is checked before the model
// changes; parented nodes and nodes that are already roots are rejected.
func (m *Model) ImportNodes(nodes ...*tree.Node) error {
	seen := make(map[*tree.Node]bool, len(nodes))
	for _, n := range nodes {
		if err := m.checkAdoptable(n); err != nil {
			return err
		}
		if seen[n] {
			return fmt.Errorf("%w: %q appears twice in the batch", tree.ErrInvalidState, n.Key())
		}
		seen[n] = true
	}
	if len(nodes) == 0 {
		return nil
	}

	start := len(m.roots)
	indices := make([]int, len(nodes))
	for i, n := range nodes {
		m.adopt(n)
		m.roots = append(m.roots, n)
		indices[i] = start + i
	}
	m.logger.WithField("count", len(nodes)).Debug("imported roots")
	m.inserted.Emit(tree.ItemsChange{Indices: indices, Nodes: append([]*tree.Node(nil), nodes...)})
	return nil
}

func (m *Model) checkAdoptable(n *tree.Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", tree.ErrInvalidArgument)
	}
	if n.Parent() != nil {
		return fmt.Errorf("%w: %q has a parent, detach it first", tree.ErrInvalidState, n.Key())
	}
	if m.rootIndex(n) >= 0 {
		return fmt.Errorf("%w: %q is already a root", tree.ErrInvalidState, n.Key())
	}
	return nil
}

func (m *Model) adopt(n *tree.Node) {
	m.subs[n] = n.Subscribe(m.forward)
}

// InsertRoot places a detached node among the roots at index.
func (m *Model) InsertRoot(index int, n *tree.Node) error {
	if err := m.checkAdoptable(n); err != nil {
		return err
	}
	if index < 0 || index > len(m.roots) {
		return fmt.Errorf("%w: root index %d, have %d roots", tree.ErrIndexOutOfRange, index, len(m.roots))
	}
	m.adopt(n)
	m.roots = append(m.roots[:index:index], append([]*tree.Node{n}, m.roots[index:]...)...)
	m.inserted.Emit(tree.ItemsChange{Indices: []int{index}, Nodes: []*tree.Node{n}})
	return nil
}

// RemoveRoot drops a root from the model.
func (m *Model) RemoveRoot(n *tree.Node) error {
	i := m.rootIndex(n)
	if i < 0 {
		return fmt.Errorf("remove %q: %w", n.Key(), ErrNotInModel)
	}
	m.removed.Emit(tree.ItemsChange{Indices: []int{i}, Nodes: []*tree.Node{n}})
	n.Unsubscribe(m.subs[n])
	delete(m.subs, n)
	m.roots = append(m.roots[:i:i], m.roots[i+1:]...)
	return nil
}

// Refresh re-synchronizes every dirty node once and forwards the resulting reports. Nodes
// that are no longer part of the model are cleared without events. It returns the number of
// nodes processed.
func (m *Model) Refresh() int {
	dirty := m.env.Dirty.Snapshot()
	for _, n := range dirty {
		// Cleared first so a node marked again while refreshing waits for the next call.
		m.env.Dirty.Clear(n)
		if !m.Contains(n) {
			m.logger.WithField("key", n.Key()).Debug("dropping dirty node outside the model")
			continue
		}
		report := n.RefreshChildren()
		m.logger.WithFields(logrus.Fields{
			"key":   n.Key(),
			"empty": report.IsEmpty(),
		}).Debug("refreshed node")
		m.forward(report)
	}
	return len(dirty)
}

// GetFiles walks the model breadth first, yielding folders and nodes wrapping a file or
// region. Branches stop at the first node that is neither, and file nodes are not expanded. Each range starts over from
// the current roots.
func (m *Model) GetFiles() iter.Seq[*tree.Node] {
	return func(yield func(*tree.Node) bool) {
		queue := m.RootNodes()
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			if !n.IsFolder() && !n.WrapsFile() {
				continue
			}
			if !yield(n) {
				return
			}
			// A file's children are values and never match; leave them unbuilt.
			if n.Kind() == tree.KindFolder || n.Kind() == tree.KindRegion {
				queue = append(queue, n.Children()...)
			}
		}
	}
}

// GetChildren returns the roots for the empty path, else the children of the node the
// path points at.
func (m *Model) GetChildren(path tree.TreePath) []*tree.Node {
	if path.IsEmpty() {
		return m.RootNodes()
	}
	return path.Last().Children()
}

// IsLeaf reports whether the node at path can never hold children. The model root is
// never a leaf.
func (m *Model) IsLeaf(path tree.TreePath) bool {
	if path.IsEmpty() {
		return false
	}
	return !path.Last().HasChildren()
}

// HasUnsavedChanges reports whether any file in the model has edits not yet saved.
func (m *Model) HasUnsavedChanges() bool {
	for n := range m.GetFiles() {
		if n.HasUnsavedChanges() {
			return true
		}
	}
	return false
}

// UnsavedFiles returns the file and region nodes with unsaved edits. Region chunks are
// reported through their region.
func (m *Model) UnsavedFiles() []*tree.Node {
	var out []*tree.Node
	for n := range m.GetFiles() {
		if p := n.Parent(); p != nil && p.Kind() == tree.KindRegion {
			continue
		}
		if n.HasUnsavedChanges() {
			out = append(out, n)
		}
	}
	return out
}

// FindByKey returns the folder, file or region node whose key is the given path.
func (m *Model) FindByKey(key string) *tree.Node {
	key = filepath.Clean(key)
	for n := range m.GetFiles() {
		if n.Key() == key {
			return n
		}
	}
	return nil
}
