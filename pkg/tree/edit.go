package tree

import (
	"fmt"

	"github.com/mattsolo1/grove-datatree/pkg/format"
)

// accepts checks that child may be placed under n. Folder edits stay in memory; edits
// under a file mutate the document payload.
func (n *Node) accepts(child *Node) error {
	switch n.kind {
	case KindFolder:
		if child.kind == KindValue {
			return fmt.Errorf("%w: a folder holds folders and files, not values", ErrInvalidArgument)
		}
		if child.kind == KindFile && child.doc.Region() != nil {
			return fmt.Errorf("%w: a region chunk cannot leave its region", ErrInvalidArgument)
		}
		return nil
	case KindRegion:
		return fmt.Errorf("%w: chunks cannot be inserted into a region", ErrInvalidArgument)
	}

	v := n.Value()
	if child.kind != KindValue {
		return fmt.Errorf("%w: only values can be placed in a %s", ErrInvalidArgument, v.Kind)
	}
	if v.Kind == format.KindMapping {
		if child.value.Key == "" {
			return fmt.Errorf("%w: mapping entries need a key", ErrInvalidArgument)
		}
		if i := v.IndexOfKey(child.value.Key); i >= 0 && v.Items[i] != child.value {
			return fmt.Errorf("%w: key %q already exists", ErrInvalidArgument, child.value.Key)
		}
	}
	return nil
}

// InsertChild adds a detached node at index and notifies listeners.
func (n *Node) InsertChild(index int, child *Node) error {
	if child.parent != nil {
		return fmt.Errorf("%w: %q already has a parent", ErrInvalidState, child.Key())
	}
	if child.IsAncestorOf(n) {
		return fmt.Errorf("%w: cannot insert a node under itself", ErrInvalidArgument)
	}
	if !n.HasChildren() {
		return fmt.Errorf("%w: %s %q", ErrNotContainer, n.kind, n.Key())
	}
	if err := n.accepts(child); err != nil {
		return err
	}
	children := n.Children()
	if index < 0 || index > len(children) {
		return fmt.Errorf("%w: insert at %d, have %d children", ErrIndexOutOfRange, index, len(children))
	}

	if v := n.Value(); v != nil {
		if err := v.Insert(index, child.value); err != nil {
			return err
		}
		n.markEdited()
	}
	n.children = append(children[:index:index], append([]*Node{child}, children[index:]...)...)
	child.parent = n
	if n.kind == KindFolder {
		n.syncDescriptor()
	}

	n.notify(ChangeReport{
		Inserted: itemsChange(n.Path(), []int{index}, []*Node{child}),
		Changed:  n.relabeled(index + 1),
	})
	return nil
}

// RemoveChild detaches child from n and notifies listeners.
func (n *Node) RemoveChild(child *Node) error {
	index := n.IndexOf(child)
	if index < 0 {
		return fmt.Errorf("%w: %q is not a child of %q", ErrInvalidArgument, child.Key(), n.Key())
	}
	path := n.Path()

	switch n.kind {
	case KindRegion:
		if _, err := n.region.RemoveChunk(index); err != nil {
			return err
		}
	case KindFile, KindValue:
		if _, err := n.Value().RemoveAt(index); err != nil {
			return err
		}
		n.markEdited()
	}
	n.children = append(n.children[:index:index], n.children[index+1:]...)
	child.parent = nil
	if n.kind == KindFolder {
		n.syncDescriptor()
	}

	n.notify(ChangeReport{
		Removed: itemsChange(path, []int{index}, []*Node{child}),
		Changed: n.relabeled(index),
	})
	return nil
}

// Detach removes the node from its parent. Detaching a parentless node is a no-op.
func (n *Node) Detach() error {
	if n.parent == nil {
		return nil
	}
	return n.parent.RemoveChild(n)
}

// MoveTo moves the node under dest at index, where index counts dest's children after
// the node has been taken out. Roots and detached nodes cannot be moved this way.
func (n *Node) MoveTo(dest *Node, index int) error {
	if n.parent == nil {
		return fmt.Errorf("%w: %q has no parent to move from", ErrInvalidState, n.Key())
	}
	if n.IsAncestorOf(dest) {
		return fmt.Errorf("%w: cannot move a node under itself", ErrInvalidArgument)
	}
	if !dest.HasChildren() {
		return fmt.Errorf("%w: %s %q", ErrNotContainer, dest.kind, dest.Key())
	}
	if err := dest.accepts(n); err != nil {
		return err
	}
	limit := len(dest.Children())
	if n.parent == dest {
		limit--
	}
	if index < 0 || index > limit {
		return fmt.Errorf("%w: move to %d, have %d children", ErrIndexOutOfRange, index, limit)
	}
	if err := n.Detach(); err != nil {
		return err
	}
	return dest.InsertChild(index, n)
}

// SetScalar replaces the text of a scalar value. An explicit string tag is kept; any
// other tag is dropped so the new text is resolved on the next load.
func (n *Node) SetScalar(text string) error {
	if n.kind != KindValue || n.value.IsContainer() {
		return fmt.Errorf("%w: %q is not a scalar value", ErrInvalidArgument, n.Key())
	}
	if n.value.Text == text {
		return nil
	}
	n.value.Text = text
	if n.value.Tag != "!!str" {
		n.value.Tag = ""
	}
	n.markEdited()
	n.notifyChanged()
	return nil
}

// Rename changes the key of a mapping entry.
func (n *Node) Rename(key string) error {
	if n.kind != KindValue {
		return fmt.Errorf("%w: only values can be renamed", ErrInvalidArgument)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if n.value.Key == key {
		return nil
	}
	if p := n.parent; p != nil {
		pv := p.Value()
		if pv.Kind == format.KindSequence {
			return fmt.Errorf("%w: sequence items are keyed by position", ErrInvalidArgument)
		}
		if i := pv.IndexOfKey(key); i >= 0 {
			return fmt.Errorf("%w: key %q already exists", ErrInvalidArgument, key)
		}
	}
	n.value.Key = key
	n.markEdited()
	n.notifyChanged()
	return nil
}

func (n *Node) markEdited() {
	if doc := n.OwnerDocument(); doc != nil {
		doc.MarkUnsaved()
	}
}

func (n *Node) notifyChanged() {
	p := n.parent
	if p == nil {
		return
	}
	p.notify(ChangeReport{Changed: itemsChange(p.Path(), []int{p.IndexOf(n)}, []*Node{n})})
}

// relabeled reports the children from index on whose keys follow their position.
func (n *Node) relabeled(from int) *ItemsChange {
	positional := n.kind == KindRegion
	if v := n.Value(); v != nil && v.Kind == format.KindSequence {
		positional = true
	}
	if !positional || from >= len(n.children) {
		return nil
	}
	var indices []int
	for i := from; i < len(n.children); i++ {
		indices = append(indices, i)
	}
	return itemsChange(n.Path(), indices, append([]*Node(nil), n.children[from:]...))
}
